package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickerScope/internal/model"
)

const topPairsQuery = `
	query TopPairs($first: Int!) {
		_meta {
			block {
				number
			}
		}
		pairs(first: $first, orderBy: trackedReserveETH, orderDirection: desc) {
			id
			token0 { id symbol decimals }
			token1 { id symbol decimals }
			token1Price
			volumeToken0
			volumeToken1
		}
	}
`

const pairsAtBlockQuery = `
	query PairsAtBlock($ids: [ID!]!, $block: Int!, $first: Int!) {
		pairs(first: $first, where: { id_in: $ids }, block: { number: $block }) {
			id
			token1Price
			volumeToken0
			volumeToken1
		}
	}
`

type tokenResponse struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type pairResponse struct {
	ID           string        `json:"id"`
	Token0       tokenResponse `json:"token0"`
	Token1       tokenResponse `json:"token1"`
	Token1Price  string        `json:"token1Price"`
	VolumeToken0 string        `json:"volumeToken0"`
	VolumeToken1 string        `json:"volumeToken1"`
}

type metaResponse struct {
	Block struct {
		Number uint64 `json:"number"`
	} `json:"block"`
}

// TopPairs returns up to limit pairs ordered by tracked reserve, with their
// trailing 24h volumes and the token1 price observed one day of blocks earlier.
func (c *Client) TopPairs(ctx context.Context, limit int) ([]model.PairMeta, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	data, err := c.doQuery(ctx, topPairsQuery, map[string]any{"first": limit})
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch top pairs: %w", err)
	}

	var current struct {
		Meta  metaResponse   `json:"_meta"`
		Pairs []pairResponse `json:"pairs"`
	}
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, fmt.Errorf("subgraph: decode top pairs: %w", err)
	}

	previous := map[string]pairResponse{}
	head := current.Meta.Block.Number
	if len(current.Pairs) > 0 && c.cfg.BlocksPerDay > 0 && head > c.cfg.BlocksPerDay {
		previous, err = c.pairsAtBlock(ctx, pairIDs(current.Pairs), head-c.cfg.BlocksPerDay)
		if err != nil {
			return nil, err
		}
	} else {
		c.logger.Debug("no 24h reference block", zap.Uint64("head", head), zap.Uint64("blocks_per_day", c.cfg.BlocksPerDay))
	}

	pairs := make([]model.PairMeta, 0, len(current.Pairs))
	for _, raw := range current.Pairs {
		prev, hasPrev := previous[strings.ToLower(raw.ID)]
		meta, err := toPairMeta(raw, prev, hasPrev)
		if err != nil {
			return nil, fmt.Errorf("subgraph: pair %s: %w", raw.ID, err)
		}
		pairs = append(pairs, meta)
	}

	return pairs, nil
}

// LatestBlock returns the latest block indexed by the subgraph.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	data, err := c.doQuery(ctx, `query LatestBlock { _meta { block { number } } }`, nil)
	if err != nil {
		return 0, fmt.Errorf("subgraph: fetch latest block: %w", err)
	}

	var result struct {
		Meta metaResponse `json:"_meta"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("subgraph: decode latest block: %w", err)
	}
	return result.Meta.Block.Number, nil
}

func (c *Client) pairsAtBlock(ctx context.Context, ids []string, block uint64) (map[string]pairResponse, error) {
	data, err := c.doQuery(ctx, pairsAtBlockQuery, map[string]any{
		"ids":   ids,
		"block": block,
		"first": len(ids),
	})
	if err != nil {
		return nil, fmt.Errorf("subgraph: fetch pairs at block %d: %w", block, err)
	}

	var result struct {
		Pairs []pairResponse `json:"pairs"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("subgraph: decode pairs at block %d: %w", block, err)
	}

	out := make(map[string]pairResponse, len(result.Pairs))
	for _, pair := range result.Pairs {
		out[strings.ToLower(pair.ID)] = pair
	}
	return out, nil
}

func toPairMeta(current, previous pairResponse, hasPrevious bool) (model.PairMeta, error) {
	price, err := parsePrice(current.Token1Price)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("token1Price: %w", err)
	}
	volume0, err := parseAmount(current.VolumeToken0)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("volumeToken0: %w", err)
	}
	volume1, err := parseAmount(current.VolumeToken1)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("volumeToken1: %w", err)
	}

	token0, err := toTokenRef(current.Token0)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := toTokenRef(current.Token1)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("token1: %w", err)
	}

	meta := model.PairMeta{
		ID:           current.ID,
		Token0:       token0,
		Token1:       token1,
		Price:        price,
		VolumeToken0: volume0,
		VolumeToken1: volume1,
	}

	if !hasPrevious {
		return meta, nil
	}

	if meta.Previous24hToken1Price, err = parsePrice(previous.Token1Price); err != nil {
		return model.PairMeta{}, fmt.Errorf("previous token1Price: %w", err)
	}
	prevVolume0, err := parseAmount(previous.VolumeToken0)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("previous volumeToken0: %w", err)
	}
	prevVolume1, err := parseAmount(previous.VolumeToken1)
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("previous volumeToken1: %w", err)
	}
	meta.VolumeToken0 = nonNegative(volume0.Sub(prevVolume0))
	meta.VolumeToken1 = nonNegative(volume1.Sub(prevVolume1))
	return meta, nil
}

func toTokenRef(token tokenResponse) (model.TokenRef, error) {
	decimals, err := strconv.ParseUint(strings.TrimSpace(token.Decimals), 10, 8)
	if err != nil {
		return model.TokenRef{}, fmt.Errorf("decimals %q: %w", token.Decimals, err)
	}
	return model.TokenRef{ID: token.ID, Symbol: token.Symbol, Decimals: uint8(decimals)}, nil
}

// parsePrice treats empty and zero prices as absent.
func parsePrice(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if price.IsZero() {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(price), nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.Sign() < 0 {
		return decimal.Zero
	}
	return value
}

func pairIDs(pairs []pairResponse) []string {
	ids := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		ids = append(ids, strings.ToLower(pair.ID))
	}
	return ids
}
