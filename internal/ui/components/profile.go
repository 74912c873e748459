package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/catalog"
	"github.com/abhisek/maxxcode/internal/progress"
	"github.com/abhisek/maxxcode/internal/store"
	"github.com/abhisek/maxxcode/internal/ui/theme"
)

// ProfileCard summarises a learner's progress.
type ProfileCard struct {
	State   progress.UserState
	Catalog *catalog.Catalog
	Width   int
	Warning string // shown when progress may not be saving
}

// View renders the card in the learner's theme.
func (c ProfileCard) View() string {
	p := theme.For(c.State.Settings.Theme)
	st := theme.NewStyles(p)
	cw := ContentWidth(c.Width)

	var b strings.Builder

	stats := fmt.Sprintf("%s  %s  %s",
		st.Highlight.Render(fmt.Sprintf("⚡ %d XP", c.State.XP)),
		st.Highlight.Render(fmt.Sprintf("🔥 %d day streak", c.State.CurrentStreak)),
		st.Body.Render(fmt.Sprintf("🏅 %d badges", len(c.State.Badges))),
	)
	b.WriteString(stats)
	b.WriteString("\n\n")

	for _, lang := range progress.AllLanguages() {
		total := c.Catalog.LessonCount(lang)
		done := completedIn(c.State.CompletedLessons, c.Catalog.Lessons(lang))
		label := fmt.Sprintf("%-10s %2d/%-2d", lang.DisplayName(), done, total)
		b.WriteString(NewProgressBar(label, Fraction(done, total), true, cw, p).View())
		b.WriteString("\n")
	}

	solved := len(c.State.CompletedProblems)
	b.WriteString(st.Subtitle.Render(fmt.Sprintf("Practice problems solved: %d/%d", solved, c.Catalog.ProblemCount(""))))
	b.WriteString("\n")

	if next, ok := c.nextLesson(); ok {
		b.WriteString("\n")
		b.WriteString(st.Body.Render("Up next: "))
		b.WriteString(st.Title.Render(next.Title))
		b.WriteString(st.Hint.Render(fmt.Sprintf("  (%s)", next.ID)))
		b.WriteString("\n")
	}

	if c.State.AdminUnlocked {
		b.WriteString(st.Hint.Render("developer mode on"))
		b.WriteString("\n")
	}
	if c.Warning != "" {
		b.WriteString("\n")
		b.WriteString(st.Warning.Render("⚠ " + c.Warning))
		b.WriteString("\n")
	}

	body := strings.TrimRight(b.String(), "\n")
	return Card(Section(fmt.Sprintf("%s track", c.State.LastActiveLanguage.DisplayName()), "\n"+body, p), cw, p)
}

// nextLesson is the first incomplete lesson of the active track.
func (c ProfileCard) nextLesson() (catalog.Lesson, bool) {
	for _, l := range c.Catalog.Lessons(c.State.LastActiveLanguage) {
		if !c.State.HasLesson(l.ID) {
			return l, true
		}
	}
	return catalog.Lesson{}, false
}

func completedIn(done []string, lessons []catalog.Lesson) int {
	n := 0
	for _, l := range lessons {
		for _, id := range done {
			if id == l.ID {
				n++
				break
			}
		}
	}
	return n
}

// BadgeList renders every catalog badge, earned ones highlighted.
type BadgeList struct {
	State   progress.UserState
	Catalog *catalog.Catalog
}

func (l BadgeList) View() string {
	st := theme.NewStyles(theme.For(l.State.Settings.Theme))
	lines := make([]string, 0, len(l.Catalog.Badges()))
	for _, b := range l.Catalog.Badges() {
		if l.State.HasBadge(b.ID) {
			lines = append(lines, st.Earned.Render(fmt.Sprintf("%s  %s", b.Icon, b.Name))+"  "+st.Subtitle.Render(b.Description))
		} else {
			lines = append(lines, st.Locked.Render(fmt.Sprintf("🔒 %s  %s", b.Name, b.Description)))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// HistoryList renders journal entries, one per line.
type HistoryList struct {
	Events  []store.Event
	Catalog *catalog.Catalog
	Theme   progress.Theme
}

func (h HistoryList) View() string {
	st := theme.NewStyles(theme.For(h.Theme))
	if len(h.Events) == 0 {
		return st.Hint.Render("No activity yet.")
	}
	lines := make([]string, 0, len(h.Events))
	for _, ev := range h.Events {
		when := st.Subtitle.Render(ev.Timestamp.Format("2006-01-02 15:04"))
		lines = append(lines, when+"  "+st.Body.Render(h.describe(ev)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (h HistoryList) describe(ev store.Event) string {
	switch ev.Kind {
	case store.EventCheckIn:
		return "Checked in"
	case store.EventLessonCompleted:
		title := ev.Subject
		if l, ok := h.Catalog.Lesson(ev.Subject); ok {
			title = l.Title
		}
		if ev.XP == 0 {
			return fmt.Sprintf("Reviewed %s", title)
		}
		return fmt.Sprintf("Completed %s (+%d xp)", title, ev.XP)
	case store.EventProblemCompleted:
		title := ev.Subject
		if p, ok := h.Catalog.Problem(ev.Subject); ok {
			title = p.Title
		}
		if ev.XP == 0 {
			return fmt.Sprintf("Solved %s again", title)
		}
		return fmt.Sprintf("Solved %s (+%d xp)", title, ev.XP)
	case store.EventBadgeUnlocked:
		if b, ok := h.Catalog.Badge(ev.Subject); ok {
			return fmt.Sprintf("Unlocked %s %s", b.Icon, b.Name)
		}
		return "Unlocked " + ev.Subject
	case store.EventSettingsChanged:
		return "Changed settings"
	case store.EventAdminUnlocked:
		return "Unlocked developer mode"
	case store.EventReset:
		return "Reset all progress"
	default:
		return string(ev.Kind)
	}
}
