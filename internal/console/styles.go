package console

import "github.com/charmbracelet/lipgloss"

// Adaptive colors readable on both light and dark terminals.
var (
	ColorError = lipgloss.AdaptiveColor{Light: "#D73737", Dark: "#FF5555"}

	ColorWarning = lipgloss.AdaptiveColor{Light: "#E67E22", Dark: "#FFB86C"}

	ColorSuccess = lipgloss.AdaptiveColor{Light: "#27AE60", Dark: "#50FA7B"}

	ColorInfo = lipgloss.AdaptiveColor{Light: "#2980B9", Dark: "#8BE9FD"}

	// ColorPurple marks removed artifacts and file paths.
	ColorPurple = lipgloss.AdaptiveColor{Light: "#8E44AD", Dark: "#BD93F9"}

	ColorComment = lipgloss.AdaptiveColor{Light: "#6C7A89", Dark: "#6272A4"}

	ColorBorder = lipgloss.AdaptiveColor{Light: "#BDC3C7", Dark: "#44475A"}
)

// Pre-configured styles.
var (
	Error = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	Warning = lipgloss.NewStyle().Foreground(ColorWarning)

	Success = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)

	Info = lipgloss.NewStyle().Foreground(ColorInfo)

	Removed = lipgloss.NewStyle().Foreground(ColorPurple).Bold(true)

	FilePath = lipgloss.NewStyle().Foreground(ColorPurple)

	Detail = lipgloss.NewStyle().Foreground(ColorComment)

	TableHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)

	TableBorder = lipgloss.NewStyle().Foreground(ColorBorder)
)
