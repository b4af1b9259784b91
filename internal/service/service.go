package service

import (
	"context"
	"errors"

	"trustme_backend/internal/model"
	"trustme_backend/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Service is the facade HTTP handlers talk to. Everything the outside
// world may do to the ledger or the referral graph goes through here.
type Service struct {
	*WalletService
	*ReferralService
	*ProjectionService
}

func NewService(wallet *WalletService, referral *ReferralService, projection *ProjectionService) *Service {
	return &Service{
		WalletService:     wallet,
		ReferralService:   referral,
		ProjectionService: projection,
	}
}

type WalletServiceI interface {
	EnsureUser(ctx context.Context, id string) (*model.User, error)
	Balance(ctx context.Context, userID string) (*model.Wallet, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*model.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*model.Transaction, error)
	Transactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
}

type ReferralServiceI interface {
	MyCode(ctx context.Context, userID string) (*model.ReferralCode, error)
	Bind(ctx context.Context, childUserID, code string) error
	Stats(ctx context.Context, code string) (*model.ReferralTree, error)
}

// Store is the single exclusion domain the services run their
// read-modify-persist units inside.
type Store interface {
	Update(ctx context.Context, fn func(s *repository.State) error) error
	View(ctx context.Context, fn func(s *repository.State) error) error
}
