// Package tracker owns the learner's live progress. It serializes every
// state change through the progress mutator, persists the result, and then
// runs side effects (journal, metrics, notifications) in that order.
package tracker

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/maxxcode/internal/catalog"
	"github.com/abhisek/maxxcode/internal/metrics"
	"github.com/abhisek/maxxcode/internal/progress"
	"github.com/abhisek/maxxcode/internal/store"
)

var (
	ErrUnknownLesson   = errors.New("unknown lesson")
	ErrUnknownProblem  = errors.New("unknown problem")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrWrongPassword   = errors.New("wrong admin password")

	errUnread = errors.New("stored progress could not be read; not overwriting it")
)

// Rewards are the xp used when a catalog entry does not set its own.
type Rewards struct {
	LessonXP  int
	ProblemXP int
}

// Config wires a Service. Store is required; everything else has a default.
type Config struct {
	Store   *store.StateStore
	Journal store.EventRepo // nil disables history
	Catalog *catalog.Catalog

	Rewards       Rewards
	AdminPassword string // empty disables admin unlock

	// Clock returns the current instant. Location picks the calendar used
	// for streak days; nil means time.Local.
	Clock    func() time.Time
	Location *time.Location

	Notifier Notifier
	Logger   *slog.Logger
}

// Result is the outcome of a Service operation.
type Result struct {
	State     progress.UserState `json:"state"`
	NewBadges []string           `json:"newBadges"`
	XPAwarded int                `json:"xpAwarded"`

	// Applied is false when the input was a no-op and nothing changed.
	Applied bool `json:"applied"`

	// Saved reports whether the current state is known to be persisted.
	Saved bool `json:"saved"`
}

// BadgeStatus pairs a badge definition with whether the learner holds it.
type BadgeStatus struct {
	catalog.Badge
	Earned bool `json:"earned"`
}

// Service is the single writer of the learner's progress.
type Service struct {
	store    *store.StateStore
	journal  store.EventRepo
	catalog  *catalog.Catalog
	mutator  *progress.Mutator
	rewards  Rewards
	password string
	clock    func() time.Time
	loc      *time.Location
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	state    progress.UserState
	saved    bool
	warnings []error

	// unread is set when the persisted record could not be read. Saves are
	// skipped so the defaults never overwrite it; Reset clears it.
	unread bool
}

// NewService creates a Service. Call Start before use.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("tracker: nil state store")
	}
	cat := cfg.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	s := &Service{
		store:    cfg.Store,
		journal:  cfg.Journal,
		catalog:  cat,
		mutator:  progress.NewMutator(cat.Evaluator()),
		rewards:  cfg.Rewards,
		password: cfg.AdminPassword,
		clock:    cfg.Clock,
		loc:      cfg.Location,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		state:    progress.Default(),
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Catalog returns the catalog the service validates against.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Start loads the persisted record and records today's check-in. A load
// failure is kept in Warnings and the service continues on defaults. If the
// medium could not be read, nothing is saved for the rest of the session.
func (s *Service) Start(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err != nil {
		s.warnings = append(s.warnings, err)
		if store.IsCorrupt(err) {
			metrics.CorruptRecords.Inc()
		} else {
			metrics.StoreFailures.WithLabelValues("load").Inc()
			s.unread = true
		}
	}
	s.state = state
	s.saved = err == nil
	return s.checkIn(ctx)
}

// Warnings returns the non-fatal problems seen so far, oldest first.
func (s *Service) Warnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.warnings...)
}

// State returns a copy of the current state.
func (s *Service) State() progress.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CheckIn records activity now.
func (s *Service) CheckIn(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkIn(ctx)
}

func (s *Service) checkIn(ctx context.Context) (Result, error) {
	now := s.clock().In(s.loc)
	prev := s.state
	firstToday := prev.LastLoginDate == nil || !progress.SameDay(now, *prev.LastLoginDate)

	tr := s.mutator.CheckIn(prev, now)
	if !firstToday && len(tr.NewBadges) == 0 {
		return s.unchanged(), nil
	}

	var fx effects
	if firstToday {
		fx.event(store.Event{Kind: store.EventCheckIn, Timestamp: now})
		if tr.State.CurrentStreak > 1 {
			fx.notice(Notice{Kind: NoticeStreak, Streak: tr.State.CurrentStreak})
		}
	}
	return s.commit(ctx, tr, fx)
}

// CompleteLesson marks a catalog lesson complete. Zero xp uses the lesson's
// reward; a negative xp is rejected as a no-op.
func (s *Service) CompleteLesson(ctx context.Context, lessonID string, xp int) (Result, error) {
	lesson, ok := s.catalog.Lesson(lessonID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownLesson, lessonID)
	}
	if xp == 0 {
		xp = lesson.RewardXP(s.rewards.LessonXP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.mutator.CompleteLesson(s.state, lessonID, xp)
	var fx effects
	fx.event(store.Event{Kind: store.EventLessonCompleted, Subject: lessonID, XP: tr.XPAwarded})
	if tr.XPAwarded > 0 {
		fx.metric(func() {
			metrics.LessonsCompleted.WithLabelValues(string(lesson.Language)).Inc()
			metrics.XPAwarded.WithLabelValues("lesson").Add(float64(tr.XPAwarded))
		})
		fx.notice(Notice{Kind: NoticeXP, Subject: lessonID, XP: tr.XPAwarded})
	}
	return s.commit(ctx, tr, fx)
}

// CompleteProblem marks a catalog problem solved.
func (s *Service) CompleteProblem(ctx context.Context, problemID string, xp int) (Result, error) {
	problem, ok := s.catalog.Problem(problemID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownProblem, problemID)
	}
	if xp == 0 {
		xp = problem.RewardXP(s.rewards.ProblemXP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.mutator.CompleteProblem(s.state, problemID, xp)
	var fx effects
	fx.event(store.Event{Kind: store.EventProblemCompleted, Subject: problemID, XP: tr.XPAwarded})
	if tr.XPAwarded > 0 {
		fx.metric(func() {
			metrics.ProblemsCompleted.WithLabelValues(string(problem.Language)).Inc()
			metrics.XPAwarded.WithLabelValues("problem").Add(float64(tr.XPAwarded))
		})
		fx.notice(Notice{Kind: NoticeXP, Subject: problemID, XP: tr.XPAwarded})
	}
	return s.commit(ctx, tr, fx)
}

// UpdateSettings merges patch into the settings. Unknown values are ignored.
func (s *Service) UpdateSettings(ctx context.Context, patch progress.SettingsPatch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := progress.UpdateSettings(s.state, patch)
	if !tr.Applied {
		return s.unchanged(), nil
	}
	var fx effects
	fx.event(store.Event{Kind: store.EventSettingsChanged})
	return s.commit(ctx, tr, fx)
}

// SetAPIKey stores the learner's AI key. An empty key clears it.
func (s *Service) SetAPIKey(ctx context.Context, key string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, progress.SetAPIKey(s.state, key), effects{})
}

// SetActiveLanguage records the selected track.
func (s *Service) SetActiveLanguage(ctx context.Context, lang progress.Language) (Result, error) {
	if !lang.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastActiveLanguage == lang {
		return s.unchanged(), nil
	}
	return s.commit(ctx, progress.SetActiveLanguage(s.state, lang), effects{})
}

// UnlockAdmin turns on developer mode when password matches.
func (s *Service) UnlockAdmin(ctx context.Context, password string) (Result, error) {
	if s.password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return Result{}, ErrWrongPassword
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.AdminUnlocked {
		return s.unchanged(), nil
	}
	var fx effects
	fx.event(store.Event{Kind: store.EventAdminUnlocked})
	return s.commit(ctx, progress.SetAdminUnlocked(s.state, true), fx)
}

// Reset restores the default record and clears the journal.
func (s *Service) Reset(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = progress.Default()
	err := s.store.Reset(ctx)
	s.saved = err == nil
	if err != nil {
		metrics.StoreFailures.WithLabelValues("reset").Inc()
	} else {
		s.unread = false
	}

	if s.journal != nil {
		if jerr := s.journal.Clear(ctx); jerr != nil {
			s.logger.Error("journal clear failed", "error", jerr)
		}
	}
	var fx effects
	fx.event(store.Event{Kind: store.EventReset})
	s.runEffects(ctx, fx, nil)

	return s.result(progress.Reset()), err
}

// History returns journal entries, newest first.
func (s *Service) History(ctx context.Context, opts store.QueryOpts) ([]store.Event, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Query(ctx, opts)
}

// Badges lists every catalog badge with the learner's status. Held ids the
// catalog does not define are omitted.
func (s *Service) Badges() []BadgeStatus {
	state := s.State()
	defs := s.catalog.Badges()
	out := make([]BadgeStatus, len(defs))
	for i, b := range defs {
		out[i] = BadgeStatus{Badge: b, Earned: state.HasBadge(b.ID)}
	}
	return out
}

// effects collects the side effects of one transition.
type effects struct {
	events  []store.Event
	metrics []func()
	notices []Notice
}

func (fx *effects) event(ev store.Event) { fx.events = append(fx.events, ev) }
func (fx *effects) metric(f func())      { fx.metrics = append(fx.metrics, f) }
func (fx *effects) notice(n Notice)      { fx.notices = append(fx.notices, n) }

// commit installs tr.State, persists it, then runs side effects. The
// in-memory state advances even when the save fails. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, tr progress.Transition, fx effects) (Result, error) {
	if !tr.Applied {
		return s.unchanged(), nil
	}

	s.state = tr.State
	err := s.save(ctx)
	s.saved = err == nil
	if err != nil {
		metrics.StoreFailures.WithLabelValues("save").Inc()
		fx.notice(Notice{Kind: NoticeSaveFailing})
	}

	s.runEffects(ctx, fx, tr.NewBadges)
	return s.result(tr), err
}

func (s *Service) save(ctx context.Context) error {
	if s.unread {
		return &store.ErrStorageUnavailable{Op: "save", Key: s.store.Key(), Err: errUnread}
	}
	return s.store.Save(ctx, s.state)
}

func (s *Service) runEffects(ctx context.Context, fx effects, newBadges []string) {
	now := s.clock()
	for _, id := range newBadges {
		fx.events = append(fx.events, store.Event{Kind: store.EventBadgeUnlocked, Subject: id})
		n := Notice{Kind: NoticeBadge, Subject: id}
		if b, ok := s.catalog.Badge(id); ok {
			n.Badge = &b
		}
		fx.notices = append(fx.notices, n)
	}

	if s.journal != nil {
		for _, ev := range fx.events {
			if ev.Timestamp.IsZero() {
				ev.Timestamp = now
			}
			if _, err := s.journal.Append(ctx, ev); err != nil {
				metrics.JournalFailures.Inc()
				s.logger.Error("journal append failed", "kind", ev.Kind, "error", err)
			}
		}
	}

	for _, f := range fx.metrics {
		f()
	}
	for _, id := range newBadges {
		metrics.BadgesUnlocked.WithLabelValues(id).Inc()
	}
	metrics.CurrentStreak.Set(float64(s.state.CurrentStreak))
	metrics.TotalXP.Set(float64(s.state.XP))

	for _, n := range fx.notices {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("notify failed", "kind", n.Kind, "error", err)
		}
	}
}

func (s *Service) result(tr progress.Transition) Result {
	return Result{
		State:     tr.State.Clone(),
		NewBadges: tr.NewBadges,
		XPAwarded: tr.XPAwarded,
		Applied:   tr.Applied,
		Saved:     s.saved,
	}
}

func (s *Service) unchanged() Result {
	return Result{State: s.state.Clone(), Saved: s.saved}
}
