package repository

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trustme_backend/pkg/logger"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrSnapshotIO marks failures of the backing snapshot file. Validation
// failures never wrap it, so callers can tell a rejected request from a
// durability problem.
var ErrSnapshotIO = errors.New("snapshot io failure")

const defaultWriteTimeout = 5 * time.Second

type Config struct {
	Path         string        `json:"path"`
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// Repository holds the five collections in memory and rewrites the whole
// snapshot file on every mutation. One lock serializes writers; reads
// share it so they never observe a half-applied write.
type Repository struct {
	mu           sync.RWMutex
	path         string
	writeTimeout time.Duration
	state        *State

	// writeGen numbers persist attempts (guarded by mu); renamedGen
	// tracks the newest generation that reached disk (guarded by
	// renameMu), so a write abandoned by a timed-out persist can never
	// roll the snapshot back.
	writeGen   uint64
	renameMu   sync.Mutex
	renamedGen uint64
}

func New(cfg Config) (*Repository, error) {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(ErrSnapshotIO, "create data dir: %v", err)
		}
	}

	state, err := load(cfg.Path)
	if err != nil {
		return nil, err
	}

	logger.Logger().Info("snapshot loaded",
		zap.String("path", cfg.Path),
		zap.Int("users", len(state.Users)),
		zap.Int("tx", len(state.Tx)))

	return &Repository{
		path:         cfg.Path,
		writeTimeout: cfg.WriteTimeout,
		state:        state,
	}, nil
}

func (r *Repository) Close() error {
	return nil
}

// Update runs fn against the live state and persists the result. If fn
// returns an error nothing is written. If persistence fails the mutation
// stays applied in memory and the error wraps ErrSnapshotIO.
func (r *Repository) Update(ctx context.Context, fn func(s *State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := fn(r.state); err != nil {
		return err
	}
	return r.persist(ctx)
}

// View runs fn against the live state under a shared lock. fn must not
// retain pointers into the state after it returns.
func (r *Repository) View(ctx context.Context, fn func(s *State) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.state)
}

// load reads the snapshot if present. A missing or malformed file means
// "start empty"; only an unreadable medium is an error.
func load(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrSnapshotIO, "read snapshot: %v", err)
	}

	state := newState()
	if err := json.Unmarshal(raw, state); err != nil {
		logger.Logger().Warn("malformed snapshot, starting empty",
			zap.String("path", path), zap.Error(err))
		return newState(), nil
	}
	return state, nil
}

func (r *Repository) persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(ErrSnapshotIO, "write snapshot: %v", err)
	}

	raw, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrSnapshotIO, "encode snapshot: %v", err)
	}

	r.writeGen++
	gen := r.writeGen

	done := make(chan error, 1)
	go func() {
		done <- r.writeSnapshot(gen, raw)
	}()

	timer := time.NewTimer(r.writeTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(ErrSnapshotIO, "write snapshot: %v", err)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ErrSnapshotIO, "write snapshot: %v", ctx.Err())
	case <-timer.C:
		return errors.Wrap(ErrSnapshotIO, "write snapshot: timeout")
	}
}

// writeSnapshot writes raw to a uniquely named temp file and renames it
// over the snapshot, unless a newer generation reached disk first. A
// slow write whose persist already timed out either installs its bytes
// while they are still the newest, or removes its temp file and quits;
// durable state never regresses.
func (r *Repository) writeSnapshot(gen uint64, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	r.renameMu.Lock()
	defer r.renameMu.Unlock()

	if gen <= r.renamedGen {
		os.Remove(tmp.Name())
		return nil
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	r.renamedGen = gen
	return nil
}
