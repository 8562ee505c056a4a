package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const topPairsBody = `{"data":{
	"_meta":{"block":{"number":20000000}},
	"pairs":[
		{"id":"0xB4E16D0168E52D35CACD2C6185B44281EC28C9DC",
		 "token0":{"id":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","symbol":"USDC","decimals":"6"},
		 "token1":{"id":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","symbol":"WETH","decimals":"18"},
		 "token1Price":"2500.5","volumeToken0":"1500000","volumeToken1":"600"},
		{"id":"0xa478c2975ab1ea89e8196811f51a7b7ade33eb11",
		 "token0":{"id":"0x6b175474e89094c44da98b954eedeac495271d0f","symbol":"DAI","decimals":"18"},
		 "token1":{"id":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","symbol":"WETH","decimals":"18"},
		 "token1Price":"0","volumeToken0":"10","volumeToken1":"0.004"}
	]}}`

const previousPairsBody = `{"data":{"pairs":[
	{"id":"0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc","token1Price":"2000.4","volumeToken0":"1000000","volumeToken1":"400"}
]}}`

func newTestServer(t *testing.T, handler func(req graphqlRequest) (int, string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var req graphqlRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, resp := handler(req)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(url string) Config {
	return Config{URL: url, BlocksPerDay: 7200, MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestTopPairsComputesDailyWindow(t *testing.T) {
	var block float64
	server := newTestServer(t, func(req graphqlRequest) (int, string) {
		if strings.Contains(req.Query, "PairsAtBlock") {
			block, _ = req.Variables["block"].(float64)
			ids, _ := req.Variables["ids"].([]any)
			if len(ids) != 2 || ids[0] != "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc" {
				t.Errorf("unexpected ids: %v", ids)
			}
			return http.StatusOK, previousPairsBody
		}
		if first, _ := req.Variables["first"].(float64); first != 2 {
			t.Errorf("unexpected first: %v", req.Variables["first"])
		}
		return http.StatusOK, topPairsBody
	})

	pairs, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if err != nil {
		t.Fatalf("top pairs: %v", err)
	}
	if block != 20000000-7200 {
		t.Fatalf("previous block mismatch: %v", block)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	usdc := pairs[0]
	if usdc.Token0.Symbol != "USDC" || usdc.Token0.Decimals != 6 || usdc.Token1.Decimals != 18 {
		t.Fatalf("token refs mismatch: %+v %+v", usdc.Token0, usdc.Token1)
	}
	if !usdc.Price.Valid || !usdc.Price.Decimal.Equal(decimal.RequireFromString("2500.5")) {
		t.Fatalf("price mismatch: %+v", usdc.Price)
	}
	if !usdc.Previous24hToken1Price.Valid || !usdc.Previous24hToken1Price.Decimal.Equal(decimal.RequireFromString("2000.4")) {
		t.Fatalf("previous price mismatch: %+v", usdc.Previous24hToken1Price)
	}
	if !usdc.VolumeToken0.Equal(decimal.NewFromInt(500000)) || !usdc.VolumeToken1.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("volume mismatch: %s %s", usdc.VolumeToken0, usdc.VolumeToken1)
	}

	dai := pairs[1]
	if dai.Price.Valid {
		t.Fatalf("zero price should be absent: %+v", dai.Price)
	}
	if dai.Previous24hToken1Price.Valid {
		t.Fatalf("missing history should leave previous price absent")
	}
	if !dai.VolumeToken0.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("cumulative volume expected without history: %s", dai.VolumeToken0)
	}
}

func TestTopPairsSkipsHistoryNearGenesis(t *testing.T) {
	var historyCalls int32
	server := newTestServer(t, func(req graphqlRequest) (int, string) {
		if strings.Contains(req.Query, "PairsAtBlock") {
			atomic.AddInt32(&historyCalls, 1)
			return http.StatusOK, previousPairsBody
		}
		return http.StatusOK, strings.Replace(topPairsBody, "20000000", "100", 1)
	})

	pairs, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if err != nil {
		t.Fatalf("top pairs: %v", err)
	}
	if atomic.LoadInt32(&historyCalls) != 0 {
		t.Fatalf("history should not be queried below one day of blocks")
	}
	if !pairs[0].VolumeToken0.Equal(decimal.NewFromInt(1500000)) {
		t.Fatalf("volume mismatch: %s", pairs[0].VolumeToken0)
	}
}

func TestTopPairsClampsNegativeVolume(t *testing.T) {
	server := newTestServer(t, func(req graphqlRequest) (int, string) {
		if strings.Contains(req.Query, "PairsAtBlock") {
			return http.StatusOK, strings.Replace(previousPairsBody, `"volumeToken0":"1000000"`, `"volumeToken0":"9000000"`, 1)
		}
		return http.StatusOK, topPairsBody
	})

	pairs, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if err != nil {
		t.Fatalf("top pairs: %v", err)
	}
	if !pairs[0].VolumeToken0.IsZero() {
		t.Fatalf("negative delta should clamp to zero: %s", pairs[0].VolumeToken0)
	}
}

func TestTopPairsSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization header mismatch: %q", got)
		}
		_, _ = io.WriteString(w, `{"data":{"_meta":{"block":{"number":1}},"pairs":[]}}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = " secret "
	pairs, err := NewClient(cfg, nil).TopPairs(context.Background(), 5)
	if err != nil {
		t.Fatalf("top pairs: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(pairs))
	}
}

func TestTopPairsGraphQLErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := newTestServer(t, func(graphqlRequest) (int, string) {
		atomic.AddInt32(&calls, 1)
		return http.StatusOK, `{"errors":[{"message":"indexing error"}]}`
	})

	_, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if err == nil || !strings.Contains(err.Error(), "indexing error") {
		t.Fatalf("expected graphql error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("graphql errors should not be retried, calls %d", calls)
	}
}

func TestTopPairsRetriesServerErrors(t *testing.T) {
	var calls int32
	server := newTestServer(t, func(graphqlRequest) (int, string) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return http.StatusBadGateway, "upstream"
		}
		return http.StatusOK, `{"data":{"_meta":{"block":{"number":1}},"pairs":[]}}`
	})

	if _, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2); err != nil {
		t.Fatalf("expected recovery after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls mismatch: %d", calls)
	}
}

func TestTopPairsNoData(t *testing.T) {
	server := newTestServer(t, func(graphqlRequest) (int, string) {
		return http.StatusOK, `{"data":null}`
	})

	_, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestTopPairsRejectsBadLimit(t *testing.T) {
	if _, err := NewClient(testConfig("http://127.0.0.1:0"), nil).TopPairs(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestLatestBlock(t *testing.T) {
	server := newTestServer(t, func(graphqlRequest) (int, string) {
		return http.StatusOK, `{"data":{"_meta":{"block":{"number":123}}}}`
	})

	block, err := NewClient(testConfig(server.URL), nil).LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("latest block: %v", err)
	}
	if block != 123 {
		t.Fatalf("block mismatch: %d", block)
	}
}

func TestTopPairsRejectsMalformedDecimals(t *testing.T) {
	server := newTestServer(t, func(req graphqlRequest) (int, string) {
		if strings.Contains(req.Query, "PairsAtBlock") {
			return http.StatusOK, previousPairsBody
		}
		return http.StatusOK, strings.Replace(topPairsBody, `"decimals":"6"`, `"decimals":"six"`, 1)
	})

	_, err := NewClient(testConfig(server.URL), nil).TopPairs(context.Background(), 2)
	if err == nil || !strings.Contains(err.Error(), "decimals") {
		t.Fatalf("expected decimals error, got %v", err)
	}
}
