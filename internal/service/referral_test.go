package service

import (
	"context"
	"testing"

	"trustme_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralService_MyCodeIdempotent(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	first, err := service.MyCode(ctx, "alice-1234")
	require.NoError(t, err)
	second, err := service.MyCode(ctx, "alice-1234")
	require.NoError(t, err)

	assert.Equal(t, "ALICE-", first.Code)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestReferralService_MyCodeShortUserID(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)

	rec, err := service.MyCode(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, "ABXXXX", rec.Code)
}

func TestReferralService_MyCodeCollisionFallsBackToRandom(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	first, err := service.MyCode(ctx, "abcdef-one")
	require.NoError(t, err)
	second, err := service.MyCode(ctx, "abcdef-two")
	require.NoError(t, err)

	assert.Equal(t, "ABCDEF", first.Code)
	assert.NotEqual(t, first.Code, second.Code)
	assert.Len(t, second.Code, 6)
}

func TestReferralService_BindFirstWins(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	codeA, err := service.MyCode(ctx, "parent-a")
	require.NoError(t, err)
	codeB, err := service.MyCode(ctx, "parent-b")
	require.NoError(t, err)

	require.NoError(t, service.Bind(ctx, "child", codeA.Code))
	require.NoError(t, service.Bind(ctx, "child", codeB.Code))

	treeA, err := service.Stats(ctx, codeA.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"child"}, treeA.Tier1)

	treeB, err := service.Stats(ctx, codeB.Code)
	require.NoError(t, err)
	assert.Empty(t, treeB.Tier1, "rebinding must not move the link")
}

func TestReferralService_BindUnknownCodeIsNoop(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	require.NoError(t, service.Bind(ctx, "child1", "UNKNOWNCODE"))

	err := repo.View(ctx, func(s *repository.State) error {
		assert.Empty(t, s.RefLinks)
		return nil
	})
	require.NoError(t, err)

	// The child stays bindable afterwards.
	code, err := service.MyCode(ctx, "parent")
	require.NoError(t, err)
	require.NoError(t, service.Bind(ctx, "child1", code.Code))

	tree, err := service.Stats(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"child1"}, tree.Tier1)
}

func TestReferralService_BindOwnCodeIsNoop(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	code, err := service.MyCode(ctx, "selfish")
	require.NoError(t, err)
	require.NoError(t, service.Bind(ctx, "selfish", code.Code))

	tree, err := service.Stats(ctx, code.Code)
	require.NoError(t, err)
	assert.Empty(t, tree.Tier1)
}

func TestReferralService_StatsThreeTierChain(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	// A -> B -> C -> D -> E, each bound by its parent's code.
	users := []string{"aaa111", "bbb222", "ccc333", "ddd444", "eee555"}
	codes := make(map[string]string, len(users))
	for _, u := range users {
		rec, err := service.MyCode(ctx, u)
		require.NoError(t, err)
		codes[u] = rec.Code
	}
	for i := 1; i < len(users); i++ {
		require.NoError(t, service.Bind(ctx, users[i], codes[users[i-1]]))
	}

	tree, err := service.Stats(ctx, codes["aaa111"])
	require.NoError(t, err)

	assert.Equal(t, []string{"bbb222"}, tree.Tier1)
	assert.Equal(t, []string{"ccc333"}, tree.Tier2)
	assert.Equal(t, []string{"ddd444"}, tree.Tier3)
	assert.Equal(t, 1, tree.Counts.T1)
	assert.Equal(t, 1, tree.Counts.T2)
	assert.Equal(t, 1, tree.Counts.T3)
	assert.NotContains(t, tree.Tier3, "eee555", "fourth tier is out of reach")
}

func TestReferralService_StatsUnknownCodeEmpty(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)

	tree, err := service.Stats(context.Background(), "NOSUCH")
	require.NoError(t, err)

	assert.Empty(t, tree.Tier1)
	assert.Empty(t, tree.Tier2)
	assert.Empty(t, tree.Tier3)
	assert.Zero(t, tree.Counts.T1)
	assert.Zero(t, tree.Counts.T2)
	assert.Zero(t, tree.Counts.T3)
}

func TestReferralService_StatsWideTier(t *testing.T) {
	repo := newTestStore(t)
	service := NewReferralService(repo)
	ctx := context.Background()

	root, err := service.MyCode(ctx, "root99")
	require.NoError(t, err)

	require.NoError(t, service.Bind(ctx, "kid-a", root.Code))
	require.NoError(t, service.Bind(ctx, "kid-b", root.Code))

	kidA, err := service.MyCode(ctx, "kid-a")
	require.NoError(t, err)
	require.NoError(t, service.Bind(ctx, "grandkid", kidA.Code))

	tree, err := service.Stats(ctx, root.Code)
	require.NoError(t, err)
	assert.Equal(t, []string{"kid-a", "kid-b"}, tree.Tier1)
	assert.Equal(t, []string{"grandkid"}, tree.Tier2)
	assert.Empty(t, tree.Tier3)
}
