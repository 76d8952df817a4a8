package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Primary colors
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#3B82F6") // Blue
	ColorAccent    = lipgloss.Color("#10B981") // Green

	// Status colors
	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue

	// UI colors
	ColorBorder      = lipgloss.Color("#6B7280") // Gray
	ColorBorderLight = lipgloss.Color("#9CA3AF") // Light gray
	ColorBackground  = lipgloss.Color("#1F2937") // Dark gray
	ColorText        = lipgloss.Color("#F9FAFB") // Almost white
	ColorTextMuted   = lipgloss.Color("#9CA3AF") // Gray
	ColorHighlight   = lipgloss.Color("#8B5CF6") // Light purple

	// Special
	ColorSelected = lipgloss.Color("#7C3AED") // Purple
)

type Theme struct {
	PanelBorder      lipgloss.Border
	PanelBorderColor lipgloss.Color
	PanelPadding     []int

	TitleStyle      lipgloss.Style
	HeaderStyle     lipgloss.Style
	NormalTextStyle lipgloss.Style
	MutedTextStyle  lipgloss.Style
	HighlightStyle  lipgloss.Style

	SelectedItemStyle lipgloss.Style
	ActivePanelStyle  lipgloss.Style
	StatusBarStyle    lipgloss.Style
	ErrorStyle        lipgloss.Style
	SuccessStyle      lipgloss.Style
	WarningStyle      lipgloss.Style

	PlaceholderStyle lipgloss.Style
	HelpStyle        lipgloss.Style
}

func DefaultTheme() *Theme {
	return &Theme{
		PanelBorder:      lipgloss.RoundedBorder(),
		PanelBorderColor: ColorBorder,
		PanelPadding:     []int{0, 1},

		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1),

		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary).
			Padding(0, 1),

		NormalTextStyle: lipgloss.NewStyle().
			Foreground(ColorText),

		MutedTextStyle: lipgloss.NewStyle().
			Foreground(ColorTextMuted),

		HighlightStyle: lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true),

		SelectedItemStyle: lipgloss.NewStyle().
			Foreground(ColorSelected).
			Bold(true).
			Background(lipgloss.Color("#312E81")). // Dark purple
			Padding(0, 1),

		ActivePanelStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1),

		StatusBarStyle: lipgloss.NewStyle().
			Background(ColorBackground).
			Foreground(ColorText).
			Padding(0, 1),

		ErrorStyle: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		SuccessStyle: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),

		WarningStyle: lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true),

		PlaceholderStyle: lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorBorder).
			Align(lipgloss.Center, lipgloss.Center),

		HelpStyle: lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true),
	}
}

const (
	IconCategory   = "📂"
	IconFilm       = "🎬"
	IconImage      = "🖼"
	IconPending    = "…"
	IconCheck      = "✓"
	IconCross      = "✗"
	IconArrowRight = "▶"
)

func ErrorText(text string, theme *Theme) string {
	return theme.ErrorStyle.Render(IconCross + " " + text)
}

func StatusBadge(text string, statusType string, theme *Theme) string {
	var style lipgloss.Style

	switch statusType {
	case "success":
		style = theme.SuccessStyle.Background(lipgloss.Color("#065F46"))
	case "error":
		style = theme.ErrorStyle.Background(lipgloss.Color("#7F1D1D"))
	case "warning":
		style = theme.WarningStyle.Background(lipgloss.Color("#78350F"))
	case "info":
		style = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Background(lipgloss.Color("#1E3A8A")).
			Bold(true)
	default:
		style = theme.NormalTextStyle
	}

	return style.Padding(0, 1).Render(text)
}

func KeyHelp(key, description string, theme *Theme) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1).
		Background(lipgloss.Color("#1F2937"))

	descStyle := theme.MutedTextStyle

	return keyStyle.Render(key) + " " + descStyle.Render(description)
}

func Separator(width int, char string, color lipgloss.Color) string {
	style := lipgloss.NewStyle().Foreground(color)
	return style.Render(strings.Repeat(char, max(width, 0)))
}

