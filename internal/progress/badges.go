package progress

import "fmt"

// Default badge identifiers.
const (
	BadgeFirstSteps  = "first_steps"
	BadgeStreak3     = "streak_3"
	BadgeStreak7     = "streak_7"
	BadgeMasterCoder = "master_coder"
)

// Metric is a numeric fact derived from a UserState that badge rules compare
// against a threshold.
type Metric string

const (
	MetricCompletedLessons  Metric = "completed_lessons"
	MetricCompletedProblems Metric = "completed_problems"
	MetricCurrentStreak     Metric = "current_streak"
	MetricXP                Metric = "xp"
)

// AllMetrics returns every supported metric.
func AllMetrics() []Metric {
	return []Metric{MetricCompletedLessons, MetricCompletedProblems, MetricCurrentStreak, MetricXP}
}

// Value returns the metric's value for s.
func (m Metric) Value(s UserState) (int, error) {
	switch m {
	case MetricCompletedLessons:
		return len(s.CompletedLessons), nil
	case MetricCompletedProblems:
		return len(s.CompletedProblems), nil
	case MetricCurrentStreak:
		return s.CurrentStreak, nil
	case MetricXP:
		return s.XP, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", m)
	}
}

// Rule awards badge ID when Predicate holds for the candidate state.
type Rule struct {
	ID        string
	Predicate func(UserState) bool
}

// ThresholdRule builds a rule that holds once metric reaches threshold.
func ThresholdRule(id string, metric Metric, threshold int) (Rule, error) {
	if _, err := metric.Value(UserState{}); err != nil {
		return Rule{}, fmt.Errorf("badge %q: %w", id, err)
	}
	return Rule{
		ID: id,
		Predicate: func(s UserState) bool {
			v, _ := metric.Value(s)
			return v >= threshold
		},
	}, nil
}

// DefaultRules returns the built-in badge table.
func DefaultRules() []Rule {
	return []Rule{
		{ID: BadgeFirstSteps, Predicate: func(s UserState) bool { return len(s.CompletedLessons) >= 1 }},
		{ID: BadgeStreak3, Predicate: func(s UserState) bool { return s.CurrentStreak >= 3 }},
		{ID: BadgeStreak7, Predicate: func(s UserState) bool { return s.CurrentStreak >= 7 }},
		{ID: BadgeMasterCoder, Predicate: func(s UserState) bool { return len(s.CompletedLessons) >= 10 }},
	}
}

// Evaluator decides which badges a candidate state newly qualifies for.
type Evaluator struct {
	rules []Rule
	known map[string]bool
}

// NewEvaluator creates an evaluator over rules. Rules without an ID or
// predicate are ignored; a repeated ID keeps its first rule.
func NewEvaluator(rules ...Rule) *Evaluator {
	e := &Evaluator{known: make(map[string]bool, len(rules))}
	for _, r := range rules {
		if r.ID == "" || r.Predicate == nil || e.known[r.ID] {
			continue
		}
		e.known[r.ID] = true
		e.rules = append(e.rules, r)
	}
	return e
}

// DefaultEvaluator returns an evaluator over DefaultRules.
func DefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultRules()...)
}

// Check returns, in rule order, the badge ids the candidate qualifies for
// that it does not already hold. It never mutates candidate.
func (e *Evaluator) Check(candidate UserState) []string {
	held := make(map[string]bool, len(candidate.Badges))
	for _, id := range candidate.Badges {
		held[id] = true
	}

	var ids []string
	for _, r := range e.rules {
		if held[r.ID] {
			continue
		}
		if r.Predicate(candidate) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Knows reports whether id is defined by one of the evaluator's rules.
func (e *Evaluator) Knows(id string) bool {
	return e.known[id]
}

// IDs returns the badge ids in rule order.
func (e *Evaluator) IDs() []string {
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID
	}
	return ids
}

// CheckBadges evaluates the built-in badge table against candidate.
func CheckBadges(candidate UserState) []string {
	return DefaultEvaluator().Check(candidate)
}
