package model

import "github.com/shopspring/decimal"

// Reserves is a pool reserve snapshot in human units, ordered as requested (A, B).
type Reserves struct {
	A decimal.Decimal `json:"reserve_a"`
	B decimal.Decimal `json:"reserve_b"`
}
