package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trustme_backend/internal/model"
	"trustme_backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultTxLimit = 50

// WalletService owns wallet balances and the append-only transaction
// record.
type WalletService struct {
	store Store
}

func NewWalletService(store Store) *WalletService {
	return &WalletService{
		store: store,
	}
}

// EnsureUser returns the user for id, creating it with a zero-balance
// wallet on first contact. Only creation touches the snapshot.
func (s *WalletService) EnsureUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	found := false
	err := s.store.View(ctx, func(st *repository.State) error {
		if u := st.UserByID(id); u != nil {
			user = *u
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if found {
		return &user, nil
	}

	err = s.store.Update(ctx, func(st *repository.State) error {
		user, _ = st.GetOrCreateUser(id, time.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Balance returns the user's wallet, lazily creating a zero-balance one.
func (s *WalletService) Balance(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	found := false
	err := s.store.View(ctx, func(st *repository.State) error {
		for i := range st.Wallets {
			if st.Wallets[i].UserID == userID {
				wallet = st.Wallets[i]
				found = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}
	if found {
		return &wallet, nil
	}

	err = s.store.Update(ctx, func(st *repository.State) error {
		wallet = *st.WalletFor(userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &wallet, nil
}

// Deposit credits the wallet and records a confirmed deposit. The
// returned transaction is durable when the call succeeds.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var tx model.Transaction
	err := s.store.Update(ctx, func(st *repository.State) error {
		w := st.WalletFor(userID)
		w.Balance = w.Balance.Add(amount)
		tx = newTransaction(userID, model.TransactionDeposit, amount)
		st.AppendTransaction(tx)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}
	return &tx, nil
}

// Withdraw debits the wallet and records a confirmed withdrawal. No
// partial withdrawal, no overdraft: an amount above the balance leaves
// the wallet untouched and records nothing.
func (s *WalletService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var tx model.Transaction
	err := s.store.Update(ctx, func(st *repository.State) error {
		w := st.WalletFor(userID)
		if amount.GreaterThan(w.Balance) {
			return ErrInsufficientBalance
		}
		w.Balance = w.Balance.Sub(amount)
		tx = newTransaction(userID, model.TransactionWithdraw, amount)
		st.AppendTransaction(tx)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}
	return &tx, nil
}

// Transactions returns up to limit of the user's transactions, newest
// first.
func (s *WalletService) Transactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = defaultTxLimit
	}

	var out []model.Transaction
	err := s.store.View(ctx, func(st *repository.State) error {
		out = st.TransactionsFor(userID, limit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

func newTransaction(userID string, typ model.TransactionType, amount decimal.Decimal) model.Transaction {
	return model.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Amount:    amount,
		Status:    model.TransactionConfirmed,
		TxID:      displayTxID(),
		CreatedAt: time.Now().UTC(),
	}
}

// displayTxID yields the user-facing transaction reference. A collision
// would be a generation bug, not a condition to handle.
func displayTxID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TX-" + strings.ToUpper(raw[:10])
}
