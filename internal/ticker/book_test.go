package ticker

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSynthesizeDegenerateReserves(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{name: "zero a", a: "0", b: "500"},
		{name: "zero b", a: "1000000", b: "0"},
		{name: "both zero", a: "0", b: "0"},
		{name: "negative", a: "-1", b: "10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			book := Synthesize(decimal.RequireFromString(tc.a), decimal.RequireFromString(tc.b))
			if book.Bids == nil || book.Asks == nil {
				t.Fatalf("book sides must be non-nil")
			}
			if len(book.Bids) != 0 || len(book.Asks) != 0 {
				t.Fatalf("expected empty book, got %d bids %d asks", len(book.Bids), len(book.Asks))
			}
		})
	}
}

func TestSynthesizeReferenceLevel(t *testing.T) {
	book := Synthesize(decimal.NewFromInt(1_000_000), decimal.NewFromInt(500))

	level, ok := levelAtDepth(book.Asks, decimal.RequireFromString("0.01"))
	if !ok {
		t.Fatalf("missing ask level at depth 0.01")
	}
	if !level.Amount.Equal(decimal.NewFromInt(10_000)) {
		t.Fatalf("amount mismatch: %s", level.Amount)
	}

	want := decimal.RequireFromString("0.000505050505050505050505")
	tolerance := decimal.RequireFromString("0.000000000001")
	if level.Price.Sub(want).Abs().GreaterThan(tolerance) {
		t.Fatalf("price mismatch: got %s want %s", level.Price, want)
	}
}

func TestSynthesizeMonotonicity(t *testing.T) {
	reserves := [][2]string{
		{"1000000", "500"},
		{"0.000000000000000001", "1000000000"},
		{"123.456", "123.456"},
		{"2500.5", "0.75"},
	}

	for _, pair := range reserves {
		book := Synthesize(decimal.RequireFromString(pair[0]), decimal.RequireFromString(pair[1]))
		if len(book.Asks) != len(DefaultDepthFractions) || len(book.Bids) != len(DefaultDepthFractions) {
			t.Fatalf("%v: level count mismatch: %d bids %d asks", pair, len(book.Bids), len(book.Asks))
		}
		for i := 1; i < len(book.Asks); i++ {
			if book.Asks[i].Price.LessThan(book.Asks[i-1].Price) {
				t.Fatalf("%v: asks not ascending at %d", pair, i)
			}
			if book.Asks[i].Depth.LessThan(book.Asks[i-1].Depth) {
				t.Fatalf("%v: ask depth order changed at %d", pair, i)
			}
		}
		for i := 1; i < len(book.Bids); i++ {
			if book.Bids[i].Price.GreaterThan(book.Bids[i-1].Price) {
				t.Fatalf("%v: bids not descending at %d", pair, i)
			}
			if book.Bids[i].Depth.LessThan(book.Bids[i-1].Depth) {
				t.Fatalf("%v: bid depth order changed at %d", pair, i)
			}
		}
		if !book.HighestBid().Decimal.LessThan(book.LowestAsk().Decimal) {
			t.Fatalf("%v: crossed book: bid %s ask %s", pair, book.HighestBid().Decimal, book.LowestAsk().Decimal)
		}
	}
}

func TestSynthesizePreservesInvariant(t *testing.T) {
	reserveA := decimal.RequireFromString("84321.987654321987654321")
	reserveB := decimal.RequireFromString("17.000000000000000003")
	k := reserveA.Mul(reserveB)
	book := Synthesize(reserveA, reserveB)
	tolerance := k.Mul(decimal.New(1, -20))

	for _, level := range book.Asks {
		newA := reserveA.Sub(level.Amount)
		newB := reserveB.Add(level.Price.Mul(level.Amount))
		if diff := newA.Mul(newB).Sub(k).Abs(); diff.GreaterThan(tolerance) {
			t.Fatalf("ask at %s breaks invariant by %s", level.Depth, diff)
		}
	}
	for _, level := range book.Bids {
		newA := reserveA.Add(level.Amount)
		newB := reserveB.Sub(level.Price.Mul(level.Amount))
		if diff := newA.Mul(newB).Sub(k).Abs(); diff.GreaterThan(tolerance) {
			t.Fatalf("bid at %s breaks invariant by %s", level.Depth, diff)
		}
	}
}

func TestSynthesizeSymmetry(t *testing.T) {
	a := decimal.RequireFromString("1000000")
	b := decimal.RequireFromString("500")
	forward := Synthesize(a, b)
	reverse := Synthesize(b, a)
	tolerance := decimal.New(1, -18)

	for _, bid := range forward.Bids {
		ask, ok := levelAtDepth(reverse.Asks, bid.Depth)
		if !ok {
			t.Fatalf("missing reverse ask at %s", bid.Depth)
		}
		reciprocal := one.DivRound(ask.Price, divisionPrecision)
		relative := bid.Price.Sub(reciprocal).Abs().DivRound(bid.Price, divisionPrecision)
		if relative.GreaterThan(tolerance) {
			t.Fatalf("depth %s: bid %s is not the reciprocal of ask %s", bid.Depth, bid.Price, ask.Price)
		}
	}
}

func TestSynthesizerSkipsOutOfRangeFractions(t *testing.T) {
	synth := NewSynthesizer([]decimal.Decimal{
		decimal.Zero,
		decimal.RequireFromString("-0.1"),
		decimal.RequireFromString("0.5"),
		decimal.NewFromInt(1),
		decimal.RequireFromString("1.5"),
	})

	book := synth.Synthesize(decimal.NewFromInt(100), decimal.NewFromInt(100))
	if len(book.Asks) != 1 || len(book.Bids) != 1 {
		t.Fatalf("expected one level per side, got %d bids %d asks", len(book.Bids), len(book.Asks))
	}
	// newA = 50, newB = 200: 100 of B for 50 of A.
	if !book.Asks[0].Price.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("ask price mismatch: %s", book.Asks[0].Price)
	}
	// newB = 50, newA = 200: 50 of B for 100 of A.
	if !book.Bids[0].Price.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("bid price mismatch: %s", book.Bids[0].Price)
	}
	if !book.Bids[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("bid amount mismatch: %s", book.Bids[0].Amount)
	}
}

func TestSynthesizerSortsUnorderedSchedule(t *testing.T) {
	synth := NewSynthesizer([]decimal.Decimal{
		decimal.RequireFromString("0.1"),
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("0.01"),
	})

	book := synth.Synthesize(decimal.NewFromInt(1000), decimal.NewFromInt(3000))
	if !book.Asks[0].Depth.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("best ask should come from the smallest depth, got %s", book.Asks[0].Depth)
	}
	if !book.Bids[0].Depth.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("best bid should come from the smallest depth, got %s", book.Bids[0].Depth)
	}
}

func TestNewSynthesizerCopiesSchedule(t *testing.T) {
	fractions := []decimal.Decimal{decimal.RequireFromString("0.01")}
	synth := NewSynthesizer(fractions)
	fractions[0] = decimal.RequireFromString("0.5")

	got := synth.Fractions()
	if len(got) != 1 || !got[0].Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("schedule was mutated: %v", got)
	}
}

func levelAtDepth(levels []Level, depth decimal.Decimal) (Level, bool) {
	for _, level := range levels {
		if level.Depth.Equal(depth) {
			return level, true
		}
	}
	return Level{}, false
}

func TestSynthesizeTinyReserveKeepsPrecision(t *testing.T) {
	a := decimal.RequireFromString("1000000000")
	b := decimal.RequireFromString("0.000000000000000003")
	book := Synthesize(a, b)
	tolerance := decimal.New(1, -20)

	if len(book.Asks) != len(DefaultDepthFractions) || len(book.Bids) != len(DefaultDepthFractions) {
		t.Fatalf("expected full ladders, got %d asks and %d bids", len(book.Asks), len(book.Bids))
	}
	for _, ask := range book.Asks {
		// price = B / (A * (1 - f))
		want := b.DivRound(a.Mul(one.Sub(ask.Depth)), 80)
		if relative := ask.Price.Sub(want).Abs().DivRound(want, 80); relative.GreaterThan(tolerance) {
			t.Fatalf("depth %s: ask %s, want %s (relative error %s)", ask.Depth, ask.Price, want, relative)
		}
	}
	for _, bid := range book.Bids {
		// price = B * (1 - f) / A
		want := b.Mul(one.Sub(bid.Depth)).DivRound(a, 80)
		if relative := bid.Price.Sub(want).Abs().DivRound(want, 80); relative.GreaterThan(tolerance) {
			t.Fatalf("depth %s: bid %s, want %s (relative error %s)", bid.Depth, bid.Price, want, relative)
		}
	}
}

func TestQuoKeepsSignificantDigits(t *testing.T) {
	got := quo(decimal.New(1, -30), decimal.NewFromInt(3))
	want := decimal.RequireFromString("0." + strings.Repeat("0", 30) + strings.Repeat("3", 36))
	if !got.Equal(want) {
		t.Fatalf("quo mismatch: %s, want %s", got, want)
	}
	if !quo(decimal.NewFromInt(10), decimal.NewFromInt(4)).Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("quo should divide exactly when possible")
	}
	if !quo(decimal.Zero, decimal.NewFromInt(7)).IsZero() {
		t.Fatalf("quo of zero should be zero")
	}
}
