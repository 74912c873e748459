// Package progress is the learner progress engine: the persisted UserState
// record, streak and badge evaluation, and the mutator that every
// state-changing event flows through. Everything here is pure; persistence
// lives in the store package.
package progress

import (
	"slices"
	"time"
)

// Language is the programming track a learner is working in.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
)

// AllLanguages returns all tracks in display order.
func AllLanguages() []Language {
	return []Language{LanguagePython, LanguageJavaScript}
}

// Valid reports whether l is a known track.
func (l Language) Valid() bool {
	return slices.Contains(AllLanguages(), l)
}

// DisplayName returns a human-readable label for the track.
func (l Language) DisplayName() string {
	switch l {
	case LanguagePython:
		return "Python"
	case LanguageJavaScript:
		return "JavaScript"
	default:
		return string(l)
	}
}

// AppLanguage is the interface language.
type AppLanguage string

const (
	AppLanguageEnglish  AppLanguage = "en"
	AppLanguageHindi    AppLanguage = "hi"
	AppLanguageHinglish AppLanguage = "hinglish"
)

// AllAppLanguages returns all interface languages.
func AllAppLanguages() []AppLanguage {
	return []AppLanguage{AppLanguageEnglish, AppLanguageHindi, AppLanguageHinglish}
}

// Valid reports whether a is a known interface language.
func (a AppLanguage) Valid() bool {
	return slices.Contains(AllAppLanguages(), a)
}

// Theme is the colour theme preference.
type Theme string

const (
	ThemeLight    Theme = "light"
	ThemeDark     Theme = "dark"
	ThemeMidnight Theme = "midnight"
	ThemeCandy    Theme = "candy"
	ThemeOrange   Theme = "orange"
	ThemeForest   Theme = "forest"
	ThemeCoffee   Theme = "coffee"
	ThemeGolden   Theme = "golden"
	ThemeNeon     Theme = "neon"
	ThemeBerry    Theme = "berry"
	ThemeLemon    Theme = "lemon"
	ThemeCosmic   Theme = "cosmic"
	ThemeAqua     Theme = "aqua"
)

// AllThemes returns every theme in picker order.
func AllThemes() []Theme {
	return []Theme{
		ThemeLight, ThemeDark, ThemeMidnight, ThemeCandy, ThemeOrange,
		ThemeForest, ThemeCoffee, ThemeGolden, ThemeNeon, ThemeBerry,
		ThemeLemon, ThemeCosmic, ThemeAqua,
	}
}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return slices.Contains(AllThemes(), t)
}

// Settings holds UI preferences. Both fields are always populated after a load.
type Settings struct {
	AppLanguage AppLanguage `json:"appLanguage"`
	Theme       Theme       `json:"theme"`
}

// UserState is the single persisted progress record.
//
// The slices are sets: no duplicates, order carries no meaning. Operations in
// this package never modify the state they are given.
type UserState struct {
	CompletedLessons   []string   `json:"completedLessons"`
	CompletedProblems  []string   `json:"completedProblems"`
	CurrentStreak      int        `json:"currentStreak"`
	LastLoginDate      *time.Time `json:"lastLoginDate"` // nil = never recorded
	XP                 int        `json:"xp"`
	Badges             []string   `json:"badges"`
	AdminUnlocked      bool       `json:"adminUnlocked"`
	APIKey             *string    `json:"apiKey"`
	LastActiveLanguage Language   `json:"lastActiveLanguage,omitempty"`
	Settings           Settings   `json:"settings"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		AppLanguage: AppLanguageEnglish,
		Theme:       ThemeLight,
	}
}

// Default returns the record used on first run and after a full reset.
func Default() UserState {
	return UserState{
		CompletedLessons:   []string{},
		CompletedProblems:  []string{},
		Badges:             []string{},
		LastActiveLanguage: LanguagePython,
		Settings:           DefaultSettings(),
	}
}

// Clone returns a deep copy of s.
func (s UserState) Clone() UserState {
	c := s
	c.CompletedLessons = cloneSet(s.CompletedLessons)
	c.CompletedProblems = cloneSet(s.CompletedProblems)
	c.Badges = cloneSet(s.Badges)
	if s.LastLoginDate != nil {
		t := *s.LastLoginDate
		c.LastLoginDate = &t
	}
	if s.APIKey != nil {
		k := *s.APIKey
		c.APIKey = &k
	}
	return c
}

// HasLesson reports whether lessonID is completed.
func (s UserState) HasLesson(lessonID string) bool {
	return slices.Contains(s.CompletedLessons, lessonID)
}

// HasProblem reports whether problemID is completed.
func (s UserState) HasProblem(problemID string) bool {
	return slices.Contains(s.CompletedProblems, problemID)
}

// HasBadge reports whether badgeID has been earned.
func (s UserState) HasBadge(badgeID string) bool {
	return slices.Contains(s.Badges, badgeID)
}

// cloneSet copies a set slice, never returning nil so the JSON form stays [].
func cloneSet(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// union appends the ids of add that are not already in set, skipping empty
// ids and duplicates within add. The result is a new slice.
func union(set []string, add ...string) []string {
	out := cloneSet(set)
	seen := make(map[string]bool, len(out)+len(add))
	for _, id := range out {
		seen[id] = true
	}
	for _, id := range add {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
