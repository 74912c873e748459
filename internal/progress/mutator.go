package progress

import (
	"math"
	"strings"
	"time"
)

// Transition is the outcome of a mutator call.
type Transition struct {
	State UserState

	// NewBadges lists the badge ids unlocked by this transition, in rule order.
	NewBadges []string

	// XPAwarded is the xp added to State. Zero for repeat completions.
	XPAwarded int

	// Applied is false when the input was rejected and State equals the input.
	Applied bool
}

// Mutator is the single path for state-changing events. Every operation
// returns a new state; inputs are never modified.
type Mutator struct {
	badges *Evaluator
}

// NewMutator creates a mutator that evaluates badges with e.
// A nil evaluator uses the built-in badge table.
func NewMutator(e *Evaluator) *Mutator {
	if e == nil {
		e = DefaultEvaluator()
	}
	return &Mutator{badges: e}
}

// Evaluator returns the badge evaluator in use.
func (m *Mutator) Evaluator() *Evaluator {
	return m.badges
}

// CompleteLesson marks lessonID complete. Xp is awarded only the first time
// the lesson is added; repeat completions still run the badge check.
func (m *Mutator) CompleteLesson(s UserState, lessonID string, xpGain int) Transition {
	if !validCompletion(lessonID, xpGain) {
		return Transition{State: s}
	}

	if !s.HasLesson(lessonID) && !fitsXP(s, xpGain) {
		return Transition{State: s}
	}

	next := s.Clone()
	var awarded int
	if !s.HasLesson(lessonID) {
		next.CompletedLessons = union(next.CompletedLessons, lessonID)
		awarded = xpGain
		next.XP += awarded
	}
	return m.settle(next, awarded)
}

// CompleteProblem marks problemID solved with the same rules as CompleteLesson.
func (m *Mutator) CompleteProblem(s UserState, problemID string, xpGain int) Transition {
	if !validCompletion(problemID, xpGain) {
		return Transition{State: s}
	}

	if !s.HasProblem(problemID) && !fitsXP(s, xpGain) {
		return Transition{State: s}
	}

	next := s.Clone()
	var awarded int
	if !s.HasProblem(problemID) {
		next.CompletedProblems = union(next.CompletedProblems, problemID)
		awarded = xpGain
		next.XP += awarded
	}
	return m.settle(next, awarded)
}

// CheckIn records activity at now and unions any badges the updated streak
// qualifies for. Repeated same-day check-ins change nothing.
func (m *Mutator) CheckIn(s UserState, now time.Time) Transition {
	return m.settle(UpdateStreak(s, now), 0)
}

// settle runs the badge fold against the candidate and unions the result.
func (m *Mutator) settle(candidate UserState, awarded int) Transition {
	ids := m.badges.Check(candidate)
	if len(ids) > 0 {
		candidate.Badges = union(candidate.Badges, ids...)
	}
	return Transition{
		State:     candidate,
		NewBadges: ids,
		XPAwarded: awarded,
		Applied:   true,
	}
}

// SettingsPatch lists the settings to change. Nil fields are left as they are.
type SettingsPatch struct {
	AppLanguage *AppLanguage `json:"appLanguage,omitempty"`
	Theme       *Theme       `json:"theme,omitempty"`
}

// UpdateSettings merges patch into s.Settings key by key. Unknown values are
// ignored so the settings stay within their enums.
func UpdateSettings(s UserState, patch SettingsPatch) Transition {
	next := s.Clone()
	applied := false
	if patch.AppLanguage != nil && patch.AppLanguage.Valid() {
		next.Settings.AppLanguage = *patch.AppLanguage
		applied = true
	}
	if patch.Theme != nil && patch.Theme.Valid() {
		next.Settings.Theme = *patch.Theme
		applied = true
	}
	if !applied {
		return Transition{State: s}
	}
	return Transition{State: next, Applied: true}
}

// SetAdminUnlocked sets the developer-mode flag.
func SetAdminUnlocked(s UserState, unlocked bool) Transition {
	next := s.Clone()
	next.AdminUnlocked = unlocked
	return Transition{State: next, Applied: true}
}

// SetAPIKey stores key. An empty or blank key clears it.
func SetAPIKey(s UserState, key string) Transition {
	next := s.Clone()
	key = strings.TrimSpace(key)
	if key == "" {
		next.APIKey = nil
	} else {
		next.APIKey = &key
	}
	return Transition{State: next, Applied: true}
}

// SetActiveLanguage records the selected track. Unknown tracks are a no-op.
func SetActiveLanguage(s UserState, lang Language) Transition {
	if !lang.Valid() {
		return Transition{State: s}
	}
	next := s.Clone()
	next.LastActiveLanguage = lang
	return Transition{State: next, Applied: true}
}

// Reset returns the default record.
func Reset() Transition {
	return Transition{State: Default(), Applied: true}
}

func validCompletion(id string, xpGain int) bool {
	return strings.TrimSpace(id) != "" && xpGain >= 0
}

// fitsXP reports whether gain can be added to s.XP without overflowing.
func fitsXP(s UserState, gain int) bool {
	return gain <= math.MaxInt-s.XP
}

var defaultMutator = NewMutator(nil)

// CompleteLesson applies a lesson completion with the built-in badge table.
func CompleteLesson(s UserState, lessonID string, xpGain int) Transition {
	return defaultMutator.CompleteLesson(s, lessonID, xpGain)
}

// CompleteProblem applies a problem completion with the built-in badge table.
func CompleteProblem(s UserState, problemID string, xpGain int) Transition {
	return defaultMutator.CompleteProblem(s, problemID, xpGain)
}
