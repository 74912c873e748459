package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/maxxcode/internal/catalog"
	"github.com/abhisek/maxxcode/internal/progress"
)

func TestStateStore_LoadEmpty(t *testing.T) {
	ss := NewStateStore(NewMemoryBackend(), nil)

	s, err := ss.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, progress.Default(), s)
}

func TestStateStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	ss := NewStateStore(openTestStore(t).Records(), nil)

	s := progress.CompleteLesson(progress.Default(), "py-hello", 25).State
	s = progress.UpdateStreak(s, time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, ss.Save(ctx, s))

	got, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.CompletedLessons, got.CompletedLessons)
	assert.Equal(t, s.XP, got.XP)
	assert.Equal(t, s.Badges, got.Badges)
	assert.Equal(t, 1, got.CurrentStreak)
	require.NotNil(t, got.LastLoginDate)
	assert.True(t, s.LastLoginDate.Equal(*got.LastLoginDate))
}

func TestStateStore_PartialRecordMerged(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"xp": 50, "settings": {"theme": "dark"}}`)))

	s, err := NewStateStore(b, nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, s.XP)
	assert.Equal(t, []string{}, s.CompletedLessons)
	assert.Equal(t, progress.ThemeDark, s.Settings.Theme)
	assert.Equal(t, progress.AppLanguageEnglish, s.Settings.AppLanguage)
}

func TestStateStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"xp": "lots", "badges": ["first_steps"]}`)))

	s, err := NewStateStore(b, nil).Load(ctx)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
	assert.False(t, IsStorageUnavailable(err))
	assert.ErrorIs(t, err, progress.ErrMalformedRecord)
	assert.Equal(t, progress.Default(), s, "a corrupt record is never partially applied")
}

func TestStateStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	boom := errors.New("disk on fire")
	b.SetErr(boom)
	ss := NewStateStore(b, nil)

	s, err := ss.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsStorageUnavailable(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, progress.Default(), s)

	err = ss.Save(ctx, progress.Default())
	var unavailable *ErrStorageUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "save", unavailable.Op)
	assert.Equal(t, StateKey, unavailable.Key)

	err = ss.Reset(ctx)
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "reset", unavailable.Op)
}

func TestStateStore_IgnoresOtherVersions(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Put(ctx, "maxxcode_user_v2", []byte(`{"xp": 900}`)))

	s, err := NewStateStore(b, nil).Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.XP)
}

func TestStateStore_Reset(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	ss := NewStateStore(b, nil)
	require.NoError(t, ss.Save(ctx, progress.CompleteLesson(progress.Default(), "l1", 25).State))

	require.NoError(t, ss.Reset(ctx))

	s, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.Default(), s)
}

func TestStateStore_UnknownFields(t *testing.T) {
	ctx := context.Background()
	raw := []byte(`{"xp": 5, "nickname": "ada"}`)

	t.Run("dropped by default", func(t *testing.T) {
		b := NewMemoryBackend()
		require.NoError(t, b.Put(ctx, StateKey, raw))
		ss := NewStateStore(b, nil)

		s, err := ss.Load(ctx)
		require.NoError(t, err)
		require.NoError(t, ss.Save(ctx, s))

		assert.NotContains(t, storedFields(t, b), "nickname")
	})

	t.Run("preserved on request", func(t *testing.T) {
		b := NewMemoryBackend()
		require.NoError(t, b.Put(ctx, StateKey, raw))
		ss := NewStateStore(b, nil, WithPreserveUnknown())

		s, err := ss.Load(ctx)
		require.NoError(t, err)
		s.XP = 10
		require.NoError(t, ss.Save(ctx, s))

		fields := storedFields(t, b)
		assert.JSONEq(t, `"ada"`, string(fields["nickname"]))
		assert.JSONEq(t, `10`, string(fields["xp"]))

		require.NoError(t, ss.Reset(ctx))
		assert.NotContains(t, storedFields(t, b), "nickname", "reset forgets preserved fields")
	})
}

func TestStateStore_CatalogCodecKeepsCatalogBadges(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.Default()
	require.NoError(t, err)
	b := NewMemoryBackend()
	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"badges": ["first_steps", "problem_solver", "xp_500", "retired_badge"]}`)))

	s, err := NewStateStore(b, progress.NewCodec(cat.Evaluator())).Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{progress.BadgeFirstSteps, "problem_solver", "xp_500"}, s.Badges)
}

func TestStateStore_CorruptRecordIsBackedUp(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	bad := []byte(`{"xp": "lots"}`)
	require.NoError(t, b.Put(ctx, StateKey, bad))
	ss := NewStateStore(b, nil)

	_, err := ss.Load(ctx)
	require.True(t, IsCorrupt(err))

	got, err := b.Get(ctx, ss.BackupKey())
	require.NoError(t, err)
	assert.Equal(t, bad, got)
}

func TestStateStore_FailedLoadForgetsPreservedFields(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	ss := NewStateStore(b, nil, WithPreserveUnknown())

	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"xp": 10, "nickname": "ada"}`)))
	_, err := ss.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"xp": "lots"}`)))
	_, err = ss.Load(ctx)
	require.True(t, IsCorrupt(err))
	require.NoError(t, ss.Save(ctx, progress.Default()))
	assert.NotContains(t, storedFields(t, b), "nickname", "corrupt load")

	require.NoError(t, b.Put(ctx, StateKey, []byte(`{"xp": 10, "nickname": "ada"}`)))
	_, err = ss.Load(ctx)
	require.NoError(t, err)
	b.SetErr(errors.New("disk gone"))
	_, err = ss.Load(ctx)
	require.True(t, IsStorageUnavailable(err))
	b.SetErr(nil)
	require.NoError(t, ss.Save(ctx, progress.Default()))
	assert.NotContains(t, storedFields(t, b), "nickname", "unavailable load")
}

func storedFields(t *testing.T, b Backend) map[string]json.RawMessage {
	t.Helper()
	data, err := b.Get(context.Background(), StateKey)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}
