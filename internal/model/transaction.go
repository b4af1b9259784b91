package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
)

type TransactionStatus string

const (
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an append-only audit record. The wallet balance is
// authoritative; transactions are never mutated or deleted.
type Transaction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      TransactionType   `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	TxID      string            `json:"txid"`
	CreatedAt time.Time         `json:"createdAt"`
}
