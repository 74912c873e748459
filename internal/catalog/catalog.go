// Package catalog holds the read-only course content the progress engine
// references: lessons, practice problems, and badge definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/maxxcode/internal/progress"
)

//go:embed catalog.yaml
var embedded []byte

// LessonType distinguishes coding lessons from quizzes and chapter tests.
type LessonType string

const (
	LessonCode LessonType = "code"
	LessonQuiz LessonType = "quiz"
	LessonTest LessonType = "test"
)

// Difficulty grades a practice problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Default xp rewards when neither the entry nor the caller sets one.
const (
	DefaultLessonXP  = 25
	DefaultProblemXP = 40
)

// Lesson is a single lesson in a language track.
type Lesson struct {
	ID       string            `yaml:"id" json:"id"`
	Title    string            `yaml:"title" json:"title"`
	Language progress.Language `yaml:"language" json:"language"`
	Chapter  string            `yaml:"chapter" json:"chapter"`
	Order    int               `yaml:"order" json:"order"`
	Type     LessonType        `yaml:"type" json:"type"`
	XP       int               `yaml:"xp,omitempty" json:"xp,omitempty"`
}

// RewardXP returns the lesson's own xp, else fallback, else DefaultLessonXP.
func (l Lesson) RewardXP(fallback int) int {
	return reward(l.XP, fallback, DefaultLessonXP)
}

// Problem is a standalone practice exercise.
type Problem struct {
	ID         string            `yaml:"id" json:"id"`
	Title      string            `yaml:"title" json:"title"`
	Language   progress.Language `yaml:"language" json:"language"`
	Difficulty Difficulty        `yaml:"difficulty" json:"difficulty"`
	XP         int               `yaml:"xp,omitempty" json:"xp,omitempty"`
}

// RewardXP returns the problem's own xp, else fallback, else DefaultProblemXP.
func (p Problem) RewardXP(fallback int) int {
	return reward(p.XP, fallback, DefaultProblemXP)
}

func reward(own, fallback, def int) int {
	switch {
	case own > 0:
		return own
	case fallback > 0:
		return fallback
	default:
		return def
	}
}

// Badge defines an achievement and the threshold that unlocks it.
type Badge struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Icon        string          `yaml:"icon" json:"icon"`
	Description string          `yaml:"description" json:"description"`
	Metric      progress.Metric `yaml:"metric" json:"metric"`
	Threshold   int             `yaml:"threshold" json:"threshold"`
}

type file struct {
	Lessons  []Lesson  `yaml:"lessons"`
	Problems []Problem `yaml:"problems"`
	Badges   []Badge   `yaml:"badges"`
}

// Catalog is an indexed, validated view of the course content.
type Catalog struct {
	lessons   []Lesson
	problems  []Problem
	badges    []Badge
	lessonIdx map[string]int
	probIdx   map[string]int
	badgeIdx  map[string]int
	evaluator *progress.Evaluator
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	return build(f)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(embedded)
	})
	return defaultCat, defaultErr
}

func build(f file) (*Catalog, error) {
	c := &Catalog{
		lessons:   f.Lessons,
		problems:  f.Problems,
		badges:    f.Badges,
		lessonIdx: make(map[string]int, len(f.Lessons)),
		probIdx:   make(map[string]int, len(f.Problems)),
		badgeIdx:  make(map[string]int, len(f.Badges)),
	}

	// Track order, then position, so NextLesson can walk it.
	sort.SliceStable(c.lessons, func(i, j int) bool {
		if c.lessons[i].Language != c.lessons[j].Language {
			return c.lessons[i].Language < c.lessons[j].Language
		}
		return c.lessons[i].Order < c.lessons[j].Order
	})
	for i, l := range c.lessons {
		c.lessonIdx[l.ID] = i
	}
	for i, p := range c.problems {
		c.probIdx[p.ID] = i
	}

	rules := make([]progress.Rule, 0, len(c.badges))
	for i, b := range c.badges {
		c.badgeIdx[b.ID] = i
		r, err := progress.ThresholdRule(b.ID, b.Metric, b.Threshold)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	c.evaluator = progress.NewEvaluator(rules...)
	return c, nil
}

// Lesson returns the lesson with id.
func (c *Catalog) Lesson(id string) (Lesson, bool) {
	i, ok := c.lessonIdx[id]
	if !ok {
		return Lesson{}, false
	}
	return c.lessons[i], true
}

// Problem returns the problem with id.
func (c *Catalog) Problem(id string) (Problem, bool) {
	i, ok := c.probIdx[id]
	if !ok {
		return Problem{}, false
	}
	return c.problems[i], true
}

// Badge returns the badge definition with id.
func (c *Catalog) Badge(id string) (Badge, bool) {
	i, ok := c.badgeIdx[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// Lessons returns the lessons of a track in order. An empty language returns all.
func (c *Catalog) Lessons(lang progress.Language) []Lesson {
	if lang == "" {
		return slices.Clone(c.lessons)
	}
	var out []Lesson
	for _, l := range c.lessons {
		if l.Language == lang {
			out = append(out, l)
		}
	}
	return out
}

// Problems returns the problems of a track. An empty language returns all.
func (c *Catalog) Problems(lang progress.Language) []Problem {
	if lang == "" {
		return slices.Clone(c.problems)
	}
	var out []Problem
	for _, p := range c.problems {
		if p.Language == lang {
			out = append(out, p)
		}
	}
	return out
}

// Badges returns all badge definitions in catalog order.
func (c *Catalog) Badges() []Badge {
	return slices.Clone(c.badges)
}

// BadgeIDs returns every defined badge id.
func (c *Catalog) BadgeIDs() []string {
	ids := make([]string, len(c.badges))
	for i, b := range c.badges {
		ids[i] = b.ID
	}
	return ids
}

// LessonCount returns the number of lessons in a track. An empty language counts all.
func (c *Catalog) LessonCount(lang progress.Language) int {
	return len(c.Lessons(lang))
}

// ProblemCount returns the number of problems in a track. An empty language counts all.
func (c *Catalog) ProblemCount(lang progress.Language) int {
	return len(c.Problems(lang))
}

// Evaluator returns a badge evaluator built from the badge definitions.
func (c *Catalog) Evaluator() *progress.Evaluator {
	return c.evaluator
}

// NextLesson returns the lesson after id in the same track.
func (c *Catalog) NextLesson(id string) (Lesson, bool) {
	i, ok := c.lessonIdx[id]
	if !ok || i+1 >= len(c.lessons) {
		return Lesson{}, false
	}
	next := c.lessons[i+1]
	if next.Language != c.lessons[i].Language {
		return Lesson{}, false
	}
	return next, true
}
