package ticker

import (
	"github.com/shopspring/decimal"

	"tickerScope/internal/model"
)

const zeroString = "0"

// BuildRecord assembles the ticker record for a pair from its metadata and a
// reserve snapshot ordered as (token0, token1). Token ids are expected to be
// normalized already; the returned key is "{token0}_{token1}".
func BuildRecord(pair model.PairMeta, reserves model.Reserves, synth *Synthesizer) (string, model.TickerRecord) {
	if synth == nil {
		synth = defaultSynthesizer
	}
	book := synth.Synthesize(reserves.A, reserves.B)

	priceChange := decimal.NullDecimal{}
	if pair.Price.Valid && !pair.Price.Decimal.IsZero() && pair.Previous24hToken1Price.Valid {
		priceChange = decimal.NewNullDecimal(ChangeInPercent(pair.Price.Decimal, pair.Previous24hToken1Price))
	}

	record := model.TickerRecord{
		TradingPairs:          pair.Token0.Symbol + "_" + pair.Token1.Symbol,
		LastPrice:             formatOptional(pair.Price),
		LowestAsk:             formatOptional(book.LowestAsk()),
		HighestBid:            formatOptional(book.HighestBid()),
		BaseVolume:            pair.VolumeToken0.String(),
		QuoteVolume:           pair.VolumeToken1.String(),
		PriceChangePercent24h: formatOptional(priceChange),
	}
	return PairKey(pair.Token0.ID, pair.Token1.ID), record
}

// PairKey joins two token ids into a summary key.
func PairKey(token0, token1 string) string {
	return token0 + "_" + token1
}

// LowestAsk returns the best ask price, if any.
func (b Book) LowestAsk() decimal.NullDecimal {
	if len(b.Asks) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(b.Asks[0].Price)
}

// HighestBid returns the best bid price, if any.
func (b Book) HighestBid() decimal.NullDecimal {
	if len(b.Bids) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(b.Bids[0].Price)
}

func formatOptional(value decimal.NullDecimal) string {
	if !value.Valid {
		return zeroString
	}
	return value.Decimal.String()
}
