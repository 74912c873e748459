package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/ui/theme"
)

// ContentWidth returns the inner width used for every card so that stacked
// cards line up.
func ContentWidth(termWidth int) int {
	// Leave room for the card border (2) and padding (4).
	return min(60, max(24, termWidth-6))
}

// Card wraps content in a rounded-border card at content width cw.
func Card(content string, cw int, p theme.Palette) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Width(cw + 4).
		Padding(0, 1).
		Render(content)
}

// Section renders a bold heading above body.
func Section(title, body string, p theme.Palette) string {
	heading := lipgloss.NewStyle().Foreground(p.Primary).Bold(true).Render(title)
	return lipgloss.JoinVertical(lipgloss.Left, heading, body)
}
