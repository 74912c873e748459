package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/maxxcode/internal/progress"
)

// Palette is the colour set for one learner theme.
type Palette struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Success   color.Color
	Error     color.Color
	Text      color.Color
	TextDim   color.Color
	Bg        color.Color
	Card      color.Color
	Border    color.Color
}

// Dark is the fallback palette, also used for the "dark" theme.
var Dark = Palette{
	Primary:   lipgloss.Color("#8B5CF6"), // Vivid Purple
	Secondary: lipgloss.Color("#14B8A6"), // Teal
	Accent:    lipgloss.Color("#F97316"), // Orange
	Success:   lipgloss.Color("#22C55E"), // Green
	Error:     lipgloss.Color("#F43F5E"), // Rose
	Text:      lipgloss.Color("#F8FAFC"), // White
	TextDim:   lipgloss.Color("#94A3B8"), // Slate
	Bg:        lipgloss.Color("#0F172A"), // Deep Navy
	Card:      lipgloss.Color("#1E293B"), // Dark Slate
	Border:    lipgloss.Color("#334155"), // Slate
}

// accents holds the per-theme primary, secondary and accent colours. Every
// other slot comes from the light or dark base.
var accents = map[progress.Theme][3]string{
	progress.ThemeLight:    {"#6366F1", "#0EA5E9", "#F59E0B"},
	progress.ThemeDark:     {"#8B5CF6", "#14B8A6", "#F97316"},
	progress.ThemeMidnight: {"#3B82F6", "#6366F1", "#A855F7"},
	progress.ThemeCandy:    {"#EC4899", "#F472B6", "#A855F7"},
	progress.ThemeOrange:   {"#F97316", "#FB923C", "#EF4444"},
	progress.ThemeForest:   {"#16A34A", "#65A30D", "#CA8A04"},
	progress.ThemeCoffee:   {"#92400E", "#B45309", "#D97706"},
	progress.ThemeGolden:   {"#CA8A04", "#EAB308", "#F59E0B"},
	progress.ThemeNeon:     {"#22D3EE", "#A3E635", "#F0ABFC"},
	progress.ThemeBerry:    {"#BE185D", "#9333EA", "#DB2777"},
	progress.ThemeLemon:    {"#CA8A04", "#84CC16", "#EAB308"},
	progress.ThemeCosmic:   {"#7C3AED", "#C026D3", "#38BDF8"},
	progress.ThemeAqua:     {"#0891B2", "#06B6D4", "#14B8A6"},
}

var darkBases = map[progress.Theme]bool{
	progress.ThemeDark:     true,
	progress.ThemeMidnight: true,
	progress.ThemeNeon:     true,
	progress.ThemeCosmic:   true,
}

var light = Palette{
	Success: lipgloss.Color("#16A34A"),
	Error:   lipgloss.Color("#E11D48"),
	Text:    lipgloss.Color("#0F172A"),
	TextDim: lipgloss.Color("#64748B"),
	Bg:      lipgloss.Color("#F8FAFC"),
	Card:    lipgloss.Color("#FFFFFF"),
	Border:  lipgloss.Color("#CBD5E1"),
}

// For returns the palette of t. Unknown themes get Dark.
func For(t progress.Theme) Palette {
	a, ok := accents[t]
	if !ok {
		return Dark
	}
	p := light
	if darkBases[t] {
		p = Dark
	}
	p.Primary = lipgloss.Color(a[0])
	p.Secondary = lipgloss.Color(a[1])
	p.Accent = lipgloss.Color(a[2])
	return p
}

// Styles are the text styles derived from a palette.
type Styles struct {
	Palette Palette

	// Typography
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Hint     lipgloss.Style

	// Layout
	Card lipgloss.Style

	// States
	Earned    lipgloss.Style
	Locked    lipgloss.Style
	Highlight lipgloss.Style
	Warning   lipgloss.Style
}

// NewStyles builds the styles for p.
func NewStyles(p Palette) Styles {
	return Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.TextDim),

		Body: lipgloss.NewStyle().
			Foreground(p.Text),

		Hint: lipgloss.NewStyle().
			Foreground(p.TextDim).
			Italic(true),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(1, 2),

		Earned: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),

		Locked: lipgloss.NewStyle().
			Foreground(p.TextDim),

		Highlight: lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
	}
}
