// Package styles holds the colors and lipgloss styles of the terminal client.
package styles

import (
	"charm.land/lipgloss/v2"
)

// Palette, ANSI 256 colors.
var (
	ColorBrand      = lipgloss.Color("25")  // bank blue
	ColorHighlight  = lipgloss.Color("220") // bank yellow
	ColorText       = lipgloss.Color("252")
	ColorTextMuted  = lipgloss.Color("245")
	ColorTextBright = lipgloss.Color("15")
	ColorError      = lipgloss.Color("196")
	ColorErrorBg    = lipgloss.Color("52")
	ColorBorder     = lipgloss.Color("25")
	ColorUser       = lipgloss.Color("117")
)

var (
	// HeaderStyle is the top bar.
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextBright).
			Background(ColorBrand).
			Padding(0, 1).
			Bold(true)

	// BoxStyle frames the help popup.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	TextBoldStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	TextMutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Bold(true)

	UserLabelStyle = lipgloss.NewStyle().
			Foreground(ColorUser).
			Bold(true)

	// SuggestionStyle renders a suggestion chip.
	SuggestionStyle = lipgloss.NewStyle().
			Foreground(ColorBrand).
			Background(ColorTextBright).
			Padding(0, 1)

	// BannerStyle is the dismissible error banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(ColorTextBright).
			Background(ColorErrorBg).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(ColorBorder)
)
