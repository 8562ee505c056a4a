package model

import "time"

// TickerRecord is one pair's 24h market summary. Numeric fields are decimal strings.
type TickerRecord struct {
	TradingPairs          string `json:"trading_pairs"`
	LastPrice             string `json:"last_price"`
	LowestAsk             string `json:"lowest_ask"`
	HighestBid            string `json:"highest_bid"`
	BaseVolume            string `json:"base_volume"`
	QuoteVolume           string `json:"quote_volume"`
	PriceChangePercent24h string `json:"price_change_percent_24h"`
}

// Summary maps "{token0}_{token1}" checksummed addresses to ticker records.
type Summary map[string]TickerRecord

// Merge copies other into s. Later writes win on key collision.
func (s Summary) Merge(other Summary) {
	for key, record := range other {
		s[key] = record
	}
}

// Snapshot is a summary stamped with the chain position it was computed at.
type Snapshot struct {
	ChainID     uint64    `json:"chain_id"`
	BlockNumber uint64    `json:"block_number"`
	TakenAt     time.Time `json:"taken_at"`
	Tickers     Summary   `json:"tickers"`
}
