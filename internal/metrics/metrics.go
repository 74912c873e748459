// Package metrics provides Prometheus metrics for the progress engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Progress ───────────────────────────────────────────────────────────────

// LessonsCompleted counts first-time lesson completions by track.
var LessonsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "lessons_completed_total",
	Help:      "Total first-time lesson completions.",
}, []string{"language"})

// ProblemsCompleted counts first-time problem completions by track.
var ProblemsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "problems_completed_total",
	Help:      "Total first-time problem completions.",
}, []string{"language"})

// XPAwarded counts xp granted by source (lesson or problem).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "xp_awarded_total",
	Help:      "Total xp awarded.",
}, []string{"source"})

// BadgesUnlocked counts badge unlocks by badge id.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "badges_unlocked_total",
	Help:      "Total badges unlocked.",
}, []string{"badge"})

// CurrentStreak is the learner's current daily streak.
var CurrentStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "maxxcode",
	Name:      "current_streak_days",
	Help:      "Current consecutive-day streak.",
})

// TotalXP is the learner's xp balance.
var TotalXP = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "maxxcode",
	Name:      "xp_current",
	Help:      "Current xp total.",
})

// ─── Storage ────────────────────────────────────────────────────────────────

// StoreFailures counts failed record operations by op (load, save, reset).
var StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "store_failures_total",
	Help:      "Total failed progress record operations.",
}, []string{"op"})

// CorruptRecords counts loads that fell back to defaults because the record
// did not parse.
var CorruptRecords = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "corrupt_records_total",
	Help:      "Total corrupt progress records replaced by defaults.",
})

// JournalFailures counts journal appends that failed.
var JournalFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "maxxcode",
	Name:      "journal_failures_total",
	Help:      "Total failed journal appends.",
})
