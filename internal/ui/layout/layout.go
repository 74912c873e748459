package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/ui/theme"
)

const (
	DefaultWidth = 64
	MinWidth     = 40
)

// KeyHint is a command suggestion shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// Width clamps a terminal width to something the cards render well in.
// Zero means unknown and yields DefaultWidth.
func Width(termWidth int) int {
	if termWidth <= 0 {
		return DefaultWidth
	}
	return max(MinWidth, min(termWidth, 100))
}

// RenderHeader renders the application header bar.
func RenderHeader(title string, xp, streak int, width int, p theme.Palette) string {
	left := lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true).
		Render("MaxxCode")

	center := lipgloss.NewStyle().
		Foreground(p.Text).
		Render(title)

	right := lipgloss.NewStyle().
		Foreground(p.Accent).
		Render(fmt.Sprintf("⚡ %d xp", xp)) +
		"   " +
		lipgloss.NewStyle().
			Foreground(p.Accent).
			Render(fmt.Sprintf("🔥 %d day", streak))

	leftLen := lipgloss.Width(left)
	centerLen := lipgloss.Width(center)
	rightLen := lipgloss.Width(right)

	innerWidth := max(0, width-4) // account for border padding

	leftGap := max(1, (innerWidth-centerLen)/2-leftLen)
	rightGap := max(1, innerWidth-leftLen-leftGap-centerLen-rightLen)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1).
		Render(content)
}

// RenderFooter renders suggested commands.
func RenderFooter(hints []KeyHint, p theme.Palette) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		part := lipgloss.NewStyle().Foreground(p.Text).Bold(true).Render(h.Key) +
			" " +
			lipgloss.NewStyle().Foreground(p.TextDim).Render(h.Description)
		parts = append(parts, part)
	}
	return "  " + strings.Join(parts, "   ")
}
