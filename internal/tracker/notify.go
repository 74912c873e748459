package tracker

import (
	"context"
	"log/slog"

	"github.com/abhisek/maxxcode/internal/catalog"
)

// NoticeKind identifies a celebration-worthy outcome.
type NoticeKind string

const (
	NoticeXP          NoticeKind = "xp"
	NoticeBadge       NoticeKind = "badge"
	NoticeStreak      NoticeKind = "streak"
	NoticeSaveFailing NoticeKind = "save_failing"
)

// Notice is one feedback item produced by a transition.
type Notice struct {
	Kind    NoticeKind
	Subject string // lesson, problem or badge id
	XP      int
	Streak  int
	Badge   *catalog.Badge // set for NoticeBadge when the catalog defines it
}

// Notifier receives notices after a transition has been persisted. Errors
// are logged and never affect state.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n Notice) error { return f(ctx, n) }

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"kind", n.Kind}
	if n.Subject != "" {
		attrs = append(attrs, "subject", n.Subject)
	}
	if n.XP > 0 {
		attrs = append(attrs, "xp", n.XP)
	}
	if n.Streak > 0 {
		attrs = append(attrs, "streak", n.Streak)
	}
	logger.InfoContext(ctx, "progress notice", attrs...)
	return nil
}

// Multi fans a notice out to every notifier, in order. All notifiers run;
// the first error is returned.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var first error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) error { return nil }
