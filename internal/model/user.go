package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a visitor identity created on first contact. Users are never
// deleted and never change after creation.
type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Wallet tracks the confirmed and pending balance for exactly one user.
// Balance is mutated only through the wallet service and never goes
// negative.
type Wallet struct {
	UserID  string          `json:"userId"`
	Balance decimal.Decimal `json:"balance"`
	Pending decimal.Decimal `json:"pending"`
}
