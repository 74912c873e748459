package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/maxxcode/internal/progress"
)

// validate performs all structural checks on a decoded catalog.
// Returns a combined error describing all problems found, or nil if valid.
func validate(f file) error {
	var errs []string

	lessonIDs := make(map[string]bool, len(f.Lessons))
	for _, l := range f.Lessons {
		if l.ID == "" {
			errs = append(errs, fmt.Sprintf("lesson %q has no id", l.Title))
			continue
		}
		if lessonIDs[l.ID] {
			errs = append(errs, fmt.Sprintf("duplicate lesson ID: %q", l.ID))
		}
		lessonIDs[l.ID] = true
		if !l.Language.Valid() {
			errs = append(errs, fmt.Sprintf("lesson %q has unknown language %q", l.ID, l.Language))
		}
		if !slices.Contains([]LessonType{LessonCode, LessonQuiz, LessonTest}, l.Type) {
			errs = append(errs, fmt.Sprintf("lesson %q has unknown type %q", l.ID, l.Type))
		}
		if l.XP < 0 {
			errs = append(errs, fmt.Sprintf("lesson %q has negative xp", l.ID))
		}
	}

	problemIDs := make(map[string]bool, len(f.Problems))
	for _, p := range f.Problems {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("problem %q has no id", p.Title))
			continue
		}
		if problemIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("duplicate problem ID: %q", p.ID))
		}
		problemIDs[p.ID] = true
		if !p.Language.Valid() {
			errs = append(errs, fmt.Sprintf("problem %q has unknown language %q", p.ID, p.Language))
		}
		if !slices.Contains([]Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}, p.Difficulty) {
			errs = append(errs, fmt.Sprintf("problem %q has unknown difficulty %q", p.ID, p.Difficulty))
		}
		if p.XP < 0 {
			errs = append(errs, fmt.Sprintf("problem %q has negative xp", p.ID))
		}
	}

	badgeIDs := make(map[string]bool, len(f.Badges))
	for _, b := range f.Badges {
		if b.ID == "" {
			errs = append(errs, fmt.Sprintf("badge %q has no id", b.Name))
			continue
		}
		if badgeIDs[b.ID] {
			errs = append(errs, fmt.Sprintf("duplicate badge ID: %q", b.ID))
		}
		badgeIDs[b.ID] = true
		if !slices.Contains(progress.AllMetrics(), b.Metric) {
			errs = append(errs, fmt.Sprintf("badge %q has unknown metric %q", b.ID, b.Metric))
		}
		if b.Threshold <= 0 {
			errs = append(errs, fmt.Sprintf("badge %q threshold must be positive, got %d", b.ID, b.Threshold))
		}
	}

	// The built-in badge ids are referenced by clients and must always exist.
	for _, id := range progress.DefaultEvaluator().IDs() {
		if !badgeIDs[id] {
			errs = append(errs, fmt.Sprintf("missing built-in badge %q", id))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
