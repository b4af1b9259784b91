package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trustme_backend/internal/model"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{Path: filepath.Join(t.TempDir(), "snapshot.json")}
}

func TestNew_MissingSnapshotStartsEmpty(t *testing.T) {
	repo, err := New(testConfig(t))
	require.NoError(t, err)
	defer repo.Close()

	err = repo.View(context.Background(), func(s *State) error {
		assert.Empty(t, s.Users)
		assert.Empty(t, s.Wallets)
		assert.Empty(t, s.Tx)
		assert.Empty(t, s.Referrals)
		assert.Empty(t, s.RefLinks)
		return nil
	})
	require.NoError(t, err)
}

func TestNew_MalformedSnapshotStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Path, []byte("{this is not json"), 0o644))

	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()

	err = repo.View(context.Background(), func(s *State) error {
		assert.Empty(t, s.Users)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_PersistsAndReloads(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	repo, err := New(cfg)
	require.NoError(t, err)

	err = repo.Update(ctx, func(s *State) error {
		s.GetOrCreateUser("u1", time.Now().UTC())
		w := s.WalletFor("u1")
		w.Balance = decimal.NewFromInt(42)
		s.AppendTransaction(model.Transaction{
			ID:        "tx1",
			UserID:    "u1",
			Type:      model.TransactionDeposit,
			Amount:    decimal.NewFromInt(42),
			Status:    model.TransactionConfirmed,
			TxID:      "TX-ABCDEF1234",
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reloaded, err := New(cfg)
	require.NoError(t, err)
	defer reloaded.Close()

	err = reloaded.View(ctx, func(s *State) error {
		require.Len(t, s.Users, 1)
		assert.Equal(t, "u1", s.Users[0].ID)
		require.Len(t, s.Wallets, 1)
		assert.True(t, s.Wallets[0].Balance.Equal(decimal.NewFromInt(42)))
		require.Len(t, s.Tx, 1)
		assert.Equal(t, "TX-ABCDEF1234", s.Tx[0].TxID)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_FnErrorSkipsPersist(t *testing.T) {
	cfg := testConfig(t)
	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()

	wantErr := errors.New("rejected")
	err = repo.Update(context.Background(), func(s *State) error {
		s.GetOrCreateUser("u1", time.Now().UTC())
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, statErr := os.Stat(cfg.Path)
	assert.True(t, os.IsNotExist(statErr), "snapshot must not be written when fn fails")
}

func TestUpdate_DurabilityFailureKeepsMemory(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()

	// Pull the backing directory out from under the store.
	require.NoError(t, os.RemoveAll(filepath.Dir(cfg.Path)))

	err = repo.Update(ctx, func(s *State) error {
		s.GetOrCreateUser("u1", time.Now().UTC())
		return nil
	})
	assert.ErrorIs(t, err, ErrSnapshotIO)

	err = repo.View(ctx, func(s *State) error {
		assert.NotNil(t, s.UserByID("u1"), "mutation must survive a failed write")
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate_CancelledContextSurfacesSnapshotIO(t *testing.T) {
	repo, err := New(testConfig(t))
	require.NoError(t, err)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = repo.Update(ctx, func(s *State) error {
		s.GetOrCreateUser("u1", time.Now().UTC())
		return nil
	})
	assert.ErrorIs(t, err, ErrSnapshotIO)

	err = repo.View(context.Background(), func(s *State) error {
		assert.NotNil(t, s.UserByID("u1"), "mutation must survive an expired deadline")
		return nil
	})
	require.NoError(t, err)
}

func TestWriteSnapshot_StaleWriteCannotRegress(t *testing.T) {
	cfg := testConfig(t)
	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()

	newer := []byte(`{"users":[{"id":"v2"}]}`)
	older := []byte(`{"users":[{"id":"v1"}]}`)

	// An abandoned write finishing late must not overwrite a snapshot
	// from a later generation.
	require.NoError(t, repo.writeSnapshot(2, newer))
	require.NoError(t, repo.writeSnapshot(1, older))

	raw, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, newer, raw, "durable state must never regress")

	entries, err := os.ReadDir(filepath.Dir(cfg.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "losing writes must clean up their temp files")
	assert.Equal(t, filepath.Base(cfg.Path), entries[0].Name())
}

func TestUpdate_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	repo, err := New(cfg)
	require.NoError(t, err)
	defer repo.Close()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Update(ctx, func(s *State) error {
				w := s.WalletFor("u1")
				w.Balance = w.Balance.Add(decimal.NewFromInt(1))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	reloaded, err := New(cfg)
	require.NoError(t, err)
	defer reloaded.Close()

	err = reloaded.View(ctx, func(s *State) error {
		assert.True(t, s.WalletFor("u1").Balance.Equal(decimal.NewFromInt(writers)))
		return nil
	})
	require.NoError(t, err)
}

func TestState_TransactionsForOrderAndLimit(t *testing.T) {
	s := newState()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.AppendTransaction(model.Transaction{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Type:      model.TransactionDeposit,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Status:    model.TransactionConfirmed,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	s.AppendTransaction(model.Transaction{ID: "other", UserID: "u2", CreatedAt: base})

	out := s.TransactionsFor("u1", 2)
	require.Len(t, out, 2)
	assert.Equal(t, "e", out[0].ID)
	assert.Equal(t, "d", out[1].ID)
}

func TestState_TransactionsForEqualTimestamps(t *testing.T) {
	s := newState()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.AppendTransaction(model.Transaction{ID: "first", UserID: "u1", CreatedAt: ts})
	s.AppendTransaction(model.Transaction{ID: "second", UserID: "u1", CreatedAt: ts})

	out := s.TransactionsFor("u1", 10)
	require.Len(t, out, 2)
	assert.Equal(t, "second", out[0].ID, "later insertion wins the tie")
	assert.Equal(t, "first", out[1].ID)
}
