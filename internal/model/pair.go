package model

import "github.com/shopspring/decimal"

// TokenRef identifies one side of a trading pair.
type TokenRef struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// PairMeta is the pair metadata reported by the pair source.
// Price is token1 per token0. Volumes cover the trailing 24h.
type PairMeta struct {
	ID                     string              `json:"id"`
	Token0                 TokenRef            `json:"token0"`
	Token1                 TokenRef            `json:"token1"`
	Price                  decimal.NullDecimal `json:"price"`
	Previous24hToken1Price decimal.NullDecimal `json:"previous_24h_token1_price"`
	VolumeToken0           decimal.Decimal     `json:"volume_token0"`
	VolumeToken1           decimal.Decimal     `json:"volume_token1"`
}
