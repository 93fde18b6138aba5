package tui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	TitleStyle         lipgloss.Style
	BorderStyle        lipgloss.Style
	FocusBorderStyle   lipgloss.Style
	PreviewBorderStyle lipgloss.Style
	SelectedItemStyle  lipgloss.Style
	NormalItemStyle    lipgloss.Style
	DeletedItemStyle   lipgloss.Style
	HeaderStyle        lipgloss.Style
	PreviewStyle       lipgloss.Style
	StatusBarStyle     lipgloss.Style
	ErrorStyle         lipgloss.Style
	PromptStyle        lipgloss.Style
	HelpStyle          lipgloss.Style
}

func DefaultTheme() *Theme {
	subtle := lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	muted := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}

	return &Theme{
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(highlight).
			Padding(0, 1),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle),
		FocusBorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight),
		PreviewBorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle),
		SelectedItemStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(highlight),
		NormalItemStyle: lipgloss.NewStyle(),
		DeletedItemStyle: lipgloss.NewStyle().
			Foreground(muted).
			Strikethrough(true),
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight),
		PreviewStyle: lipgloss.NewStyle().
			Padding(0, 1),
		StatusBarStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C1C6B2")).
			Background(lipgloss.Color("#353533")).
			Padding(0, 1),
		ErrorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true),
		PromptStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD75F")).
			Bold(true),
		HelpStyle: lipgloss.NewStyle().
			Foreground(muted),
	}
}
