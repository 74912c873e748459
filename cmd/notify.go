package cmd

import (
	"context"
	"fmt"
	"io"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/tracker"
	"github.com/abhisek/maxxcode/internal/ui/theme"
)

// terminalNotifier prints celebrations and rings the bell for badges.
type terminalNotifier struct {
	w       io.Writer
	palette theme.Palette
}

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w, palette: theme.Dark}
}

func (t *terminalNotifier) Notify(_ context.Context, n tracker.Notice) error {
	accent := lipgloss.NewStyle().Foreground(t.palette.Accent).Bold(true)
	var line string
	switch n.Kind {
	case tracker.NoticeXP:
		line = accent.Render(fmt.Sprintf("+%d xp", n.XP))
	case tracker.NoticeStreak:
		line = accent.Render(fmt.Sprintf("🔥 %d day streak!", n.Streak))
	case tracker.NoticeBadge:
		name := n.Subject
		if n.Badge != nil {
			name = n.Badge.Icon + " " + n.Badge.Name
		}
		line = "\a" + lipgloss.NewStyle().Foreground(t.palette.Success).Bold(true).Render("Badge unlocked: "+name)
	case tracker.NoticeSaveFailing:
		line = lipgloss.NewStyle().Foreground(t.palette.Error).Render("⚠ progress may not be saving")
	default:
		return nil
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}
