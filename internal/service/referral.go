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
)

const codeLength = 6

// errNothingToBind short-circuits a bind so the no-op cases skip the
// snapshot write.
var errNothingToBind = errors.New("nothing to bind")

// ReferralService issues codes, records one-time parent/child links and
// walks the graph up to three tiers out.
type ReferralService struct {
	store Store
}

func NewReferralService(store Store) *ReferralService {
	return &ReferralService{
		store: store,
	}
}

// MyCode returns the user's referral code, issuing one on first request.
// Codes derive from the user id but never collide: a taken derivation
// falls back to random codes until a free one is found.
func (s *ReferralService) MyCode(ctx context.Context, userID string) (*model.ReferralCode, error) {
	var rec model.ReferralCode
	found := false
	err := s.store.View(ctx, func(st *repository.State) error {
		if r := st.ReferralFor(userID); r != nil {
			rec = *r
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	if found {
		return &rec, nil
	}

	err = s.store.Update(ctx, func(st *repository.State) error {
		if r := st.ReferralFor(userID); r != nil {
			rec = *r
			return nil
		}
		code := deriveCode(userID)
		for st.ReferralByCode(code) != nil {
			code = randomCode()
		}
		rec = model.ReferralCode{UserID: userID, Code: code, CreatedAt: time.Now().UTC()}
		st.AddReferral(rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue referral code: %w", err)
	}
	return &rec, nil
}

// Bind links childUserID under code. The first bind wins permanently;
// rebinding, an unknown code and a self-referral are all silent no-ops.
func (s *ReferralService) Bind(ctx context.Context, childUserID, code string) error {
	err := s.store.Update(ctx, func(st *repository.State) error {
		if st.LinkFor(childUserID) != nil {
			return errNothingToBind
		}
		owner := st.ReferralByCode(code)
		if owner == nil || owner.UserID == childUserID {
			return errNothingToBind
		}
		st.AddLink(model.ReferralLink{Child: childUserID, Code: code, CreatedAt: time.Now().UTC()})
		return nil
	})
	if errors.Is(err, errNothingToBind) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bind referral: %w", err)
	}
	return nil
}

// Stats recomputes the code's descendants from the link table: direct
// children, then children of their codes, then one tier further. An
// unknown code yields empty tiers, not an error.
func (s *ReferralService) Stats(ctx context.Context, code string) (*model.ReferralTree, error) {
	tree := &model.ReferralTree{}
	err := s.store.View(ctx, func(st *repository.State) error {
		tree.Tier1 = st.ChildrenOf([]string{code})
		tree.Tier2 = st.ChildrenOf(st.CodesOwnedBy(tree.Tier1))
		tree.Tier3 = st.ChildrenOf(st.CodesOwnedBy(tree.Tier2))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute referral stats: %w", err)
	}
	tree.Counts = model.TierCounts{
		T1: len(tree.Tier1),
		T2: len(tree.Tier2),
		T3: len(tree.Tier3),
	}
	return tree, nil
}

func deriveCode(userID string) string {
	code := strings.ToUpper(userID)
	if len(code) >= codeLength {
		return code[:codeLength]
	}
	return code + strings.Repeat("X", codeLength-len(code))
}

func randomCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeLength])
}
