package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/maxxcode/internal/catalog"
	"github.com/abhisek/maxxcode/internal/config"
	"github.com/abhisek/maxxcode/internal/progress"
	"github.com/abhisek/maxxcode/internal/store"
	"github.com/abhisek/maxxcode/internal/tracker"
)

// session is an opened progress record ready for one command.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	tracker *tracker.Service
	closers []func() error
}

func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openSession loads config, opens the configured backend and journal, and
// starts the tracker, which records today's check-in. notifier may be nil.
func openSession(cmd *cobra.Command, notifier tracker.Notifier) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogging(cfg.Log)
	s := &session{cfg: cfg, logger: logger}

	var (
		backend store.Backend
		journal store.EventRepo
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		backend, journal = st.Records(), st.EventRepo()
	case config.BackendFile:
		dir := cfg.Storage.Path
		if p, _ := cmd.Flags().GetString("db"); p != "" {
			dir = p
		}
		if dir == "" {
			dbPath, err := store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve data dir: %w", err)
			}
			dir = filepath.Dir(dbPath)
		}
		fb, err := store.NewFileBackend(dir)
		if err != nil {
			return nil, err
		}
		backend = fb
	case config.BackendMemory:
		backend, journal = store.NewMemoryBackend(), store.NewMemoryEventRepo()
	}

	opts := []store.Option{store.WithLogger(logger)}
	if cfg.Storage.PreserveUnknown {
		opts = append(opts, store.WithPreserveUnknown())
	}
	cat, err := catalog.Default()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	// The codec and the tracker share the catalog's badge set.
	states := store.NewStateStore(backend, progress.NewCodec(cat.Evaluator()), opts...)

	loc, err := cfg.Location()
	if err != nil {
		s.Close()
		return nil, err
	}
	svc, err := tracker.NewService(tracker.Config{
		Store:   states,
		Journal: journal,
		Catalog: cat,
		Rewards: tracker.Rewards{
			LessonXP:  cfg.Rewards.LessonXP,
			ProblemXP: cfg.Rewards.ProblemXP,
		},
		AdminPassword: cfg.Admin.Password,
		Location:      loc,
		Notifier:      notifier,
		Logger:        logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.tracker = svc

	if _, err := svc.Start(cmd.Context()); err != nil && !store.IsStorageUnavailable(err) {
		s.Close()
		return nil, fmt.Errorf("start tracker: %w", err)
	}
	return s, nil
}

// warning describes the most recent storage problem, or "".
func (s *session) warning() string {
	ws := s.tracker.Warnings()
	if len(ws) == 0 {
		return ""
	}
	return ws[len(ws)-1].Error()
}

// tolerate turns a storage failure into a logged warning. The command's
// change is still in effect for this run.
func (s *session) tolerate(err error) error {
	if err != nil && store.IsStorageUnavailable(err) {
		s.logger.Warn("progress may not be saving", "error", err)
		return nil
	}
	return err
}
