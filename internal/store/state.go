package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/abhisek/maxxcode/internal/progress"
)

// StateKey is the key the progress record is stored under. The suffix is the
// record schema version; records under other versions are ignored.
const StateKey = "maxxcode_user_v3"

// StateStore loads and saves the single UserState record.
type StateStore struct {
	backend  Backend
	codec    *progress.Codec
	key      string
	preserve bool
	logger   *slog.Logger

	mu     sync.Mutex
	extras map[string]json.RawMessage
}

// Option configures a StateStore.
type Option func(*StateStore)

// WithPreserveUnknown keeps unrecognised top-level fields from the last load
// and writes them back on save. Without it they are dropped.
func WithPreserveUnknown() Option {
	return func(s *StateStore) { s.preserve = true }
}

// WithKey overrides StateKey.
func WithKey(key string) Option {
	return func(s *StateStore) { s.key = key }
}

// WithLogger sets the logger used for load fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(s *StateStore) { s.logger = l }
}

// NewStateStore creates a StateStore. A nil codec uses the built-in badge table.
func NewStateStore(backend Backend, codec *progress.Codec, opts ...Option) *StateStore {
	if codec == nil {
		codec = progress.NewCodec(nil)
	}
	s := &StateStore{
		backend: backend,
		codec:   codec,
		key:     StateKey,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key returns the storage key in use.
func (s *StateStore) Key() string { return s.key }

// BackupKey is where the raw bytes of a corrupt record are kept.
func (s *StateStore) BackupKey() string { return s.key + ".corrupt" }

// Load returns the persisted record reconciled over the default. It always
// returns a usable state. A non-nil error reports that the default was used
// because the medium failed (*ErrStorageUnavailable) or the record was
// corrupt (*ErrCorruptState). A corrupt record is copied to BackupKey first.
func (s *StateStore) Load(ctx context.Context) (progress.UserState, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		s.setExtras(nil)
		return progress.Default(), nil
	}
	if err != nil {
		s.setExtras(nil)
		s.logger.Warn("progress load failed, using defaults", "key", s.key, "error", err)
		return progress.Default(), &ErrStorageUnavailable{Op: "load", Key: s.key, Err: err}
	}

	state, extras, err := s.codec.Decode(data)
	if err != nil {
		s.setExtras(nil)
		s.logger.Warn("progress record corrupt, using defaults", "key", s.key, "backup", s.BackupKey(), "error", err)
		if berr := s.backend.Put(ctx, s.BackupKey(), data); berr != nil {
			s.logger.Error("backing up corrupt record failed", "key", s.BackupKey(), "error", berr)
		}
		return progress.Default(), &ErrCorruptState{Key: s.key, Err: err}
	}
	if len(extras) > 0 && !s.preserve {
		s.logger.Debug("dropping unknown record fields", "key", s.key, "count", len(extras))
	}
	s.setExtras(extras)
	return state, nil
}

// Save writes the whole record in one Put. Last write wins.
func (s *StateStore) Save(ctx context.Context, state progress.UserState) error {
	data, err := s.codec.Encode(state, s.getExtras())
	if err != nil {
		return &ErrStorageUnavailable{Op: "save", Key: s.key, Err: err}
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		s.logger.Error("progress save failed", "key", s.key, "error", err)
		return &ErrStorageUnavailable{Op: "save", Key: s.key, Err: err}
	}
	return nil
}

// Reset persists the default record and forgets preserved fields.
func (s *StateStore) Reset(ctx context.Context) error {
	s.setExtras(nil)
	if err := s.Save(ctx, progress.Default()); err != nil {
		var unavailable *ErrStorageUnavailable
		if errors.As(err, &unavailable) {
			unavailable.Op = "reset"
		}
		return err
	}
	return nil
}

func (s *StateStore) setExtras(extras map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.preserve {
		s.extras = nil
		return
	}
	s.extras = extras
}

func (s *StateStore) getExtras() map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extras
}
