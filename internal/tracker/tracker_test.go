package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/maxxcode/internal/catalog"
	"github.com/abhisek/maxxcode/internal/progress"
	"github.com/abhisek/maxxcode/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recorder) kinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NoticeKind
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

type harness struct {
	svc     *Service
	backend store.Backend
	mem     *store.MemoryBackend
	journal *store.MemoryEventRepo
	clock   *fakeClock
	notices *recorder
	codec   *progress.Codec
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemoryBackend()
	h := &harness{
		backend: mem,
		mem:     mem,
		journal: store.NewMemoryEventRepo(),
		clock:   &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)},
		codec:   progress.NewCodec(defaultCatalog(t).Evaluator()),
	}
	h.open(t)
	return h
}

// open builds a fresh Service over the harness storage, as a new process
// would.
func (h *harness) open(t *testing.T) {
	t.Helper()
	h.notices = &recorder{}
	svc, err := NewService(Config{
		Store:         store.NewStateStore(h.backend, h.codec),
		Journal:       h.journal,
		Catalog:       defaultCatalog(t),
		Rewards:       Rewards{LessonXP: 25, ProblemXP: 40},
		AdminPassword: "hc1",
		Clock:         h.clock.Now,
		Location:      time.UTC,
		Notifier:      h.notices,
	})
	require.NoError(t, err)
	h.svc = svc
}

func (h *harness) start(t *testing.T) Result {
	t.Helper()
	res, err := h.svc.Start(context.Background())
	require.NoError(t, err)
	return res
}

func (h *harness) persisted(t *testing.T) progress.UserState {
	t.Helper()
	s, err := store.NewStateStore(h.mem, h.codec).Load(context.Background())
	require.NoError(t, err)
	return s
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

// flakyBackend fails the first n Gets.
type flakyBackend struct {
	*store.MemoryBackend
	mu    sync.Mutex
	fails int
}

func (b *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	fail := b.fails > 0
	if fail {
		b.fails--
	}
	b.mu.Unlock()
	if fail {
		return nil, errors.New("disk busy")
	}
	return b.MemoryBackend.Get(ctx, key)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}

func TestStart_FreshInstall(t *testing.T) {
	h := newHarness(t)

	res := h.start(t)

	assert.Equal(t, 1, res.State.CurrentStreak)
	assert.True(t, res.Saved)
	assert.Empty(t, h.svc.Warnings())
	assert.Equal(t, 1, h.persisted(t).CurrentStreak)

	events, err := h.svc.History(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventCheckIn, events[0].Kind)
}

func TestStart_CorruptRecordWarns(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mem.Put(context.Background(), store.StateKey, []byte(`{"xp": true}`)))

	res := h.start(t)

	require.Len(t, h.svc.Warnings(), 1)
	assert.True(t, store.IsCorrupt(h.svc.Warnings()[0]))
	assert.Zero(t, res.State.XP)
}

func TestStart_UnavailableKeepsWorking(t *testing.T) {
	h := newHarness(t)
	h.mem.SetErr(errors.New("storage disabled"))

	res, err := h.svc.Start(context.Background())

	require.Error(t, err)
	assert.True(t, store.IsStorageUnavailable(err))
	assert.False(t, res.Saved)
	assert.Equal(t, 1, res.State.CurrentStreak, "in-memory state still advances")
	require.Len(t, h.svc.Warnings(), 1)
	assert.Contains(t, h.notices.kinds(), NoticeSaveFailing)

	// The session continues in memory.
	res, err = h.svc.CompleteLesson(context.Background(), "py-hello", 0)
	require.Error(t, err)
	assert.Equal(t, 25, res.State.XP)
	assert.Equal(t, 25, h.svc.State().XP)
}

func TestStart_UnreadableRecordIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	saved := []byte(`{"xp": 900, "completedLessons": ["py-hello"]}`)
	require.NoError(t, h.mem.Put(ctx, store.StateKey, saved))
	h.backend = &flakyBackend{MemoryBackend: h.mem, fails: 1}
	h.open(t)

	res, err := h.svc.Start(ctx)
	require.Error(t, err)
	assert.True(t, store.IsStorageUnavailable(err))
	assert.False(t, res.Saved)
	assert.Equal(t, 1, res.State.CurrentStreak)

	_, err = h.svc.CompleteLesson(ctx, "py-variables", 0)
	assert.True(t, store.IsStorageUnavailable(err))

	got, err := h.mem.Get(ctx, store.StateKey)
	require.NoError(t, err)
	assert.Equal(t, saved, got, "stored record untouched")

	// The next session reads it fine.
	h.open(t)
	res = h.start(t)
	assert.Equal(t, 900, res.State.XP)
	assert.Equal(t, []string{"py-hello"}, res.State.CompletedLessons)
}

func TestReset_AfterUnreadableLoadPersists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.backend = &flakyBackend{MemoryBackend: h.mem, fails: 1}
	h.open(t)
	_, err := h.svc.Start(ctx)
	require.Error(t, err)

	_, err = h.svc.Reset(ctx)
	require.NoError(t, err)

	res, err := h.svc.CompleteLesson(ctx, "py-hello", 0)
	require.NoError(t, err, "saves resume after an explicit reset")
	assert.True(t, res.Saved)
	assert.Equal(t, 25, h.persisted(t).XP)
}

func TestCatalogBadgesSurviveReload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.start(t)
	res, err := h.svc.CompleteProblem(ctx, "js-reverse", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"problem_solver"}, res.NewBadges)

	for range 2 {
		h.open(t)
		res = h.start(t)
		assert.Contains(t, res.State.Badges, "problem_solver")
		assert.Empty(t, res.NewBadges)
		assert.NotContains(t, h.notices.kinds(), NoticeBadge)
	}

	events, err := h.svc.History(ctx, store.QueryOpts{Kind: store.EventBadgeUnlocked})
	require.NoError(t, err)
	unlocked := 0
	for _, ev := range events {
		if ev.Subject == "problem_solver" {
			unlocked++
		}
	}
	assert.Equal(t, 1, unlocked)
}

func TestComplete_NegativeXPIsNoop(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	res, err := h.svc.CompleteLesson(ctx, "py-hello", -5)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Zero(t, res.State.XP)
	assert.Empty(t, res.State.CompletedLessons)

	res, err = h.svc.CompleteProblem(ctx, "js-reverse", -1)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Empty(t, h.svc.State().CompletedProblems)

	events, err := h.svc.History(ctx, store.QueryOpts{Kind: store.EventLessonCompleted})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCheckIn_SameDayIsNoop(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.clock.Advance(3 * time.Hour)

	res, err := h.svc.CheckIn(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 1, res.State.CurrentStreak)

	events, _ := h.svc.History(context.Background(), store.QueryOpts{Kind: store.EventCheckIn})
	assert.Len(t, events, 1)
}

func TestCheckIn_ThreeDaysEarnsBadge(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.clock.Advance(24 * time.Hour)
	_, err := h.svc.CheckIn(context.Background())
	require.NoError(t, err)
	h.clock.Advance(24 * time.Hour)
	res, err := h.svc.CheckIn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.State.CurrentStreak)
	assert.Equal(t, []string{progress.BadgeStreak3}, res.NewBadges)
	assert.Contains(t, h.notices.kinds(), NoticeStreak)
	assert.Contains(t, h.notices.kinds(), NoticeBadge)
	assert.Equal(t, []string{progress.BadgeStreak3}, h.persisted(t).Badges)
}

func TestCheckIn_GapResets(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.clock.Advance(24 * time.Hour)
	_, err := h.svc.CheckIn(context.Background())
	require.NoError(t, err)

	h.clock.Advance(72 * time.Hour)
	res, err := h.svc.CheckIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.State.CurrentStreak)
}

func TestCompleteLesson(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	res, err := h.svc.CompleteLesson(ctx, "py-hello", 0)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.Saved)
	assert.Equal(t, 25, res.XPAwarded)
	assert.Equal(t, []string{progress.BadgeFirstSteps}, res.NewBadges)

	persisted := h.persisted(t)
	assert.Equal(t, []string{"py-hello"}, persisted.CompletedLessons)
	assert.Equal(t, 25, persisted.XP)

	again, err := h.svc.CompleteLesson(ctx, "py-hello", 0)
	require.NoError(t, err)
	assert.Zero(t, again.XPAwarded)
	assert.Equal(t, 25, again.State.XP)

	badges, _ := h.svc.History(ctx, store.QueryOpts{Kind: store.EventBadgeUnlocked})
	require.Len(t, badges, 1)
	assert.Equal(t, progress.BadgeFirstSteps, badges[0].Subject)
}

func TestCompleteLesson_XP(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	res, err := h.svc.CompleteLesson(ctx, "py-basics-quiz", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, res.XPAwarded, "catalog xp")

	res, err = h.svc.CompleteLesson(ctx, "py-variables", 70)
	require.NoError(t, err)
	assert.Equal(t, 70, res.XPAwarded, "explicit xp")
}

func TestCompleteLesson_Unknown(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	_, err := h.svc.CompleteLesson(context.Background(), "py-missing", 25)
	assert.ErrorIs(t, err, ErrUnknownLesson)

	_, err = h.svc.CompleteProblem(context.Background(), "py-missing", 40)
	assert.ErrorIs(t, err, ErrUnknownProblem)

	assert.Empty(t, h.svc.State().CompletedLessons)
}

func TestCompleteProblem(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	res, err := h.svc.CompleteProblem(context.Background(), "js-reverse", 0)
	require.NoError(t, err)
	assert.Equal(t, 40, res.XPAwarded)
	assert.Equal(t, []string{"problem_solver"}, res.NewBadges)
	assert.Equal(t, []string{"js-reverse"}, h.persisted(t).CompletedProblems)
}

func TestCompleteLesson_MasterCoder(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	var last Result
	for _, l := range h.svc.Catalog().Lessons(progress.LanguagePython)[:10] {
		var err error
		last, err = h.svc.CompleteLesson(ctx, l.ID, 0)
		require.NoError(t, err)
	}
	assert.Contains(t, last.NewBadges, progress.BadgeMasterCoder)
	assert.Len(t, last.State.CompletedLessons, 10)
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	dark := progress.ThemeDark

	res, err := h.svc.UpdateSettings(context.Background(), progress.SettingsPatch{Theme: &dark})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, progress.Settings{AppLanguage: progress.AppLanguageEnglish, Theme: dark}, h.persisted(t).Settings)

	bogus := progress.Theme("sepia")
	res, err = h.svc.UpdateSettings(context.Background(), progress.SettingsPatch{Theme: &bogus})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, dark, res.State.Settings.Theme)
}

func TestSetAPIKeyAndLanguage(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	_, err := h.svc.SetAPIKey(ctx, "sk-test")
	require.NoError(t, err)
	require.NotNil(t, h.persisted(t).APIKey)

	_, err = h.svc.SetAPIKey(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, h.persisted(t).APIKey)

	_, err = h.svc.SetActiveLanguage(ctx, progress.LanguageJavaScript)
	require.NoError(t, err)
	assert.Equal(t, progress.LanguageJavaScript, h.persisted(t).LastActiveLanguage)

	_, err = h.svc.SetActiveLanguage(ctx, "cobol")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestUnlockAdmin(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	_, err := h.svc.UnlockAdmin(ctx, "guess")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.False(t, h.svc.State().AdminUnlocked)

	res, err := h.svc.UnlockAdmin(ctx, "hc1")
	require.NoError(t, err)
	assert.True(t, res.State.AdminUnlocked)
	assert.True(t, h.persisted(t).AdminUnlocked)
}

func TestUnlockAdmin_DisabledWithoutPassword(t *testing.T) {
	svc, err := NewService(Config{Store: store.NewStateStore(store.NewMemoryBackend(), nil)})
	require.NoError(t, err)

	_, err = svc.UnlockAdmin(context.Background(), "")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()
	_, err := h.svc.CompleteLesson(ctx, "py-hello", 0)
	require.NoError(t, err)

	res, err := h.svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.Default(), res.State)
	assert.Equal(t, progress.Default(), h.persisted(t))

	events, err := h.svc.History(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventReset, events[0].Kind)
}

func TestBadges(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_, err := h.svc.CompleteLesson(context.Background(), "py-hello", 0)
	require.NoError(t, err)

	statuses := h.svc.Badges()
	require.Len(t, statuses, len(h.svc.Catalog().Badges()))
	earned := map[string]bool{}
	for _, b := range statuses {
		earned[b.ID] = b.Earned
	}
	assert.True(t, earned[progress.BadgeFirstSteps])
	assert.False(t, earned[progress.BadgeMasterCoder])
}

func TestHistory_NoJournal(t *testing.T) {
	svc, err := NewService(Config{Store: store.NewStateStore(store.NewMemoryBackend(), nil)})
	require.NoError(t, err)

	events, err := svc.History(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSideEffectsFollowPersist(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	var sawPersisted bool
	h.svc.notifier = NotifierFunc(func(ctx context.Context, n Notice) error {
		if n.Kind == NoticeXP {
			sawPersisted = h.persisted(t).XP == n.XP
		}
		return errors.New("speaker unplugged")
	})

	res, err := h.svc.CompleteLesson(context.Background(), "py-hello", 0)
	require.NoError(t, err, "notifier errors never surface")
	assert.True(t, sawPersisted, "notifiers run after the record is saved")
	assert.Equal(t, 25, res.State.XP)
}

func TestConcurrentCompletions(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	lessons := h.svc.Catalog().Lessons("")
	var wg sync.WaitGroup
	for _, l := range lessons {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = h.svc.CompleteLesson(ctx, id, 10)
		}(l.ID)
	}
	wg.Wait()

	s := h.persisted(t)
	assert.Len(t, s.CompletedLessons, len(lessons))
	assert.Equal(t, 10*len(lessons), s.XP)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	boom := errors.New("boom")
	m := Multi{a, NotifierFunc(func(context.Context, Notice) error { return boom }), nil, b}

	err := m.Notify(context.Background(), Notice{Kind: NoticeXP})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.notices, 1)
	assert.Len(t, b.notices, 1, "later notifiers still run")
}
