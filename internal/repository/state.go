package repository

import (
	"sort"
	"time"

	"trustme_backend/internal/model"
)

// State is the full persisted snapshot: five named collections rewritten
// wholesale on every mutation. Pointers returned by its lookup helpers
// are only valid inside the Update/View closure that obtained them.
type State struct {
	Users     []model.User         `json:"users"`
	Wallets   []model.Wallet       `json:"wallets"`
	Tx        []model.Transaction  `json:"tx"`
	Referrals []model.ReferralCode `json:"referrals"`
	RefLinks  []model.ReferralLink `json:"refLinks"`
}

func newState() *State {
	return &State{
		Users:     []model.User{},
		Wallets:   []model.Wallet{},
		Tx:        []model.Transaction{},
		Referrals: []model.ReferralCode{},
		RefLinks:  []model.ReferralLink{},
	}
}

func (s *State) UserByID(id string) *model.User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// GetOrCreateUser returns the user for id, creating it together with a
// zero-balance wallet on first contact. The second return reports
// whether anything was created.
func (s *State) GetOrCreateUser(id string, now time.Time) (model.User, bool) {
	if u := s.UserByID(id); u != nil {
		return *u, false
	}
	u := model.User{ID: id, CreatedAt: now}
	s.Users = append(s.Users, u)
	s.Wallets = append(s.Wallets, model.Wallet{UserID: id})
	return u, true
}

// WalletFor returns the user's wallet, creating a zero-balance one if it
// is somehow missing.
func (s *State) WalletFor(userID string) *model.Wallet {
	for i := range s.Wallets {
		if s.Wallets[i].UserID == userID {
			return &s.Wallets[i]
		}
	}
	s.Wallets = append(s.Wallets, model.Wallet{UserID: userID})
	return &s.Wallets[len(s.Wallets)-1]
}

func (s *State) AppendTransaction(t model.Transaction) {
	s.Tx = append(s.Tx, t)
}

// TransactionsFor returns up to limit of the user's transactions, newest
// first. Equal timestamps fall back to insertion recency.
func (s *State) TransactionsFor(userID string, limit int) []model.Transaction {
	out := make([]model.Transaction, 0, limit)
	for i := len(s.Tx) - 1; i >= 0; i-- {
		if s.Tx[i].UserID == userID {
			out = append(out, s.Tx[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *State) ReferralFor(userID string) *model.ReferralCode {
	for i := range s.Referrals {
		if s.Referrals[i].UserID == userID {
			return &s.Referrals[i]
		}
	}
	return nil
}

func (s *State) ReferralByCode(code string) *model.ReferralCode {
	for i := range s.Referrals {
		if s.Referrals[i].Code == code {
			return &s.Referrals[i]
		}
	}
	return nil
}

func (s *State) AddReferral(rc model.ReferralCode) {
	s.Referrals = append(s.Referrals, rc)
}

func (s *State) LinkFor(child string) *model.ReferralLink {
	for i := range s.RefLinks {
		if s.RefLinks[i].Child == child {
			return &s.RefLinks[i]
		}
	}
	return nil
}

func (s *State) AddLink(l model.ReferralLink) {
	s.RefLinks = append(s.RefLinks, l)
}

// ChildrenOf returns, in link insertion order, every child linked to any
// of the given codes.
func (s *State) ChildrenOf(codes []string) []string {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	children := []string{}
	for _, l := range s.RefLinks {
		if _, ok := set[l.Code]; ok {
			children = append(children, l.Child)
		}
	}
	return children
}

// CodesOwnedBy returns the codes issued to any of the given users.
func (s *State) CodesOwnedBy(userIDs []string) []string {
	set := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	codes := []string{}
	for _, r := range s.Referrals {
		if _, ok := set[r.UserID]; ok {
			codes = append(codes, r.Code)
		}
	}
	return codes
}
