package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared with the web dashboard.
var (
	ColorBorder  = lipgloss.Color("#cbd5e1")
	ColorMuted   = lipgloss.Color("#6b7280")
	ColorText    = lipgloss.Color("#e2e8f0")
	ColorAccent  = lipgloss.Color("#2563eb")
	ColorAccent2 = lipgloss.Color("#1e40af")
	ColorRed     = lipgloss.Color("#ef4444")
	ColorGreen   = lipgloss.Color("#22c55e")
	ColorYellow  = lipgloss.Color("#eab308")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	SidebarTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent2).
				Bold(true)

	NavItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	NavCursorStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	NavActiveStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(ColorRed).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent2).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	LoginBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 3)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			PaddingLeft(1).
			PaddingRight(1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
