package ticker

import (
	"slices"

	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of significant digits kept by every
// division, and the minimum number of fractional digits.
const divisionPrecision = 36

// DefaultDepthFractions is the depth schedule used when none is configured,
// logarithmically spaced from 0.01% to 10% of the pool reserve.
var DefaultDepthFractions = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
}

var (
	one                = decimal.NewFromInt(1)
	defaultSynthesizer = NewSynthesizer(nil)
)

// Level is one synthesized price level. Price is quoted in token B per token A
// and Amount is the token A size reachable at that price. Depth is the reserve
// fraction that produced the level.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
	Depth  decimal.Decimal
}

// Book is an order book approximated from a constant-product pool.
// Bids are sorted best (highest) first, asks best (lowest) first.
type Book struct {
	Bids []Level
	Asks []Level
}

// Synthesizer discretizes the x*y=k curve at a fixed set of depth fractions.
// It holds no mutable state and is safe for concurrent use.
type Synthesizer struct {
	fractions []decimal.Decimal
}

// NewSynthesizer builds a Synthesizer over fractions. An empty list selects
// DefaultDepthFractions.
func NewSynthesizer(fractions []decimal.Decimal) *Synthesizer {
	if len(fractions) == 0 {
		fractions = make([]decimal.Decimal, 0, len(DefaultDepthFractions))
		for _, raw := range DefaultDepthFractions {
			fractions = append(fractions, decimal.RequireFromString(raw))
		}
	}
	return &Synthesizer{fractions: slices.Clone(fractions)}
}

// Fractions returns a copy of the depth schedule.
func (s *Synthesizer) Fractions() []decimal.Decimal {
	return slices.Clone(s.fractions)
}

// Synthesize computes bid and ask levels from the two reserves using the
// default depth schedule.
func Synthesize(reserveA, reserveB decimal.Decimal) Book {
	return defaultSynthesizer.Synthesize(reserveA, reserveB)
}

// Synthesize computes bid and ask levels from the two reserves. A pool with an
// empty (or negative) reserve yields an empty book.
func (s *Synthesizer) Synthesize(reserveA, reserveB decimal.Decimal) Book {
	book := Book{Bids: []Level{}, Asks: []Level{}}
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return book
	}

	k := reserveA.Mul(reserveB)
	for _, fraction := range s.fractions {
		if fraction.Sign() <= 0 || fraction.GreaterThanOrEqual(one) {
			continue
		}
		if level, ok := askLevel(reserveA, reserveB, k, fraction); ok {
			book.Asks = append(book.Asks, level)
		}
		if level, ok := bidLevel(reserveA, reserveB, k, fraction); ok {
			book.Bids = append(book.Bids, level)
		}
	}

	slices.SortStableFunc(book.Asks, func(x, y Level) int {
		return x.Price.Cmp(y.Price)
	})
	slices.SortStableFunc(book.Bids, func(x, y Level) int {
		return y.Price.Cmp(x.Price)
	})
	return book
}

// askLevel prices the removal of fraction*A of token A from the pool.
func askLevel(reserveA, reserveB, k, fraction decimal.Decimal) (Level, bool) {
	delta := fraction.Mul(reserveA)
	newA := reserveA.Sub(delta)
	if delta.Sign() <= 0 || newA.Sign() <= 0 {
		return Level{}, false
	}
	newB := quo(k, newA)
	price := quo(newB.Sub(reserveB), delta)
	return Level{Price: price, Amount: delta, Depth: fraction}, true
}

// bidLevel prices the removal of fraction*B of token B from the pool, paid
// for in token A.
func bidLevel(reserveA, reserveB, k, fraction decimal.Decimal) (Level, bool) {
	delta := fraction.Mul(reserveB)
	newB := reserveB.Sub(delta)
	if delta.Sign() <= 0 || newB.Sign() <= 0 {
		return Level{}, false
	}
	newA := quo(k, newB)
	baseIn := newA.Sub(reserveA)
	if baseIn.Sign() <= 0 {
		return Level{}, false
	}
	price := quo(delta, baseIn)
	return Level{Price: price, Amount: baseIn, Depth: fraction}, true
}

// quo divides x by y, rounding far enough past the quotient's leading digit
// that tiny reserves keep divisionPrecision significant digits.
func quo(x, y decimal.Decimal) decimal.Decimal {
	if x.IsZero() {
		return decimal.Zero
	}
	places := divisionPrecision
	if order := leadingDigit(x) - leadingDigit(y); order < 0 {
		places -= order
	}
	return x.DivRound(y, int32(places))
}

// leadingDigit returns the power of ten of d's most significant digit.
func leadingDigit(d decimal.Decimal) int {
	return d.NumDigits() + int(d.Exponent()) - 1
}
