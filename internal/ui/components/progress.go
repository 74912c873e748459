package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int
	Palette     theme.Palette
}

// NewProgressBar creates a new progress bar in the given palette.
func NewProgressBar(label string, percent float64, showPercent bool, width int, p theme.Palette) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
		Palette:     p,
	}
}

// Fraction returns done/total clamped to [0, 1]. A zero total is 0.
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(1, max(0, float64(done)/float64(total)))
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(p.Palette.Text).Render(p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6 // " 100%"
	}

	barWidth := max(4, p.Width-labelWidth-percentWidth)
	filled := min(barWidth, max(0, int(float64(barWidth)*p.Percent)))
	empty := barWidth - filled

	filledStr := lipgloss.NewStyle().
		Foreground(p.Palette.Secondary).
		Render(strings.Repeat("█", filled))

	emptyStr := lipgloss.NewStyle().
		Foreground(p.Palette.Border).
		Render(strings.Repeat("░", empty))

	result += filledStr + emptyStr

	if p.ShowPercent {
		result += lipgloss.NewStyle().
			Foreground(p.Palette.TextDim).
			Render(fmt.Sprintf("  %d%%", int(p.Percent*100)))
	}

	return result
}
