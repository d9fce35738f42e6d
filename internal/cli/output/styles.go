package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/schemadoc/internal/classify"
)

// Color palette - keeping it minimal and accessible.
var (
	ColorPrimary = lipgloss.Color("39")  // Blue
	ColorSuccess = lipgloss.Color("34")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("45")  // Cyan
	ColorMuted   = lipgloss.Color("240") // Dark gray
)

// Styles holds the terminal styles.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Element lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style

	categories map[classify.Category]lipgloss.Style
}

// NewStyles builds styles for lr. Without a terminal every style renders
// plain text.
func NewStyles(lr *lipgloss.Renderer, isTTY bool) *Styles {
	s := &Styles{categories: make(map[classify.Category]lipgloss.Style)}
	plain := lr.NewStyle()

	if !isTTY {
		s.Header1, s.Header2, s.Bold, s.Muted = plain, plain, plain, plain
		s.Error, s.Warning, s.Info, s.Element = plain, plain, plain, plain
		s.StatusSuccess = plain.SetString("✓")
		s.StatusFailed = plain.SetString("✗")
		for _, c := range classify.Categories {
			s.categories[c] = plain
		}
		return s
	}

	s.Header1 = lr.NewStyle().Bold(true).Foreground(ColorPrimary).Underline(true)
	s.Header2 = lr.NewStyle().Bold(true).Foreground(ColorPrimary)
	s.Bold = lr.NewStyle().Bold(true)
	s.Muted = lr.NewStyle().Foreground(ColorMuted)
	s.Error = lr.NewStyle().Foreground(ColorError)
	s.Warning = lr.NewStyle().Foreground(ColorWarning)
	s.Info = lr.NewStyle().Foreground(ColorInfo)
	s.Element = lr.NewStyle().Bold(true).Foreground(ColorPrimary)
	s.StatusSuccess = lr.NewStyle().Foreground(ColorSuccess).SetString("✓")
	s.StatusFailed = lr.NewStyle().Foreground(ColorError).SetString("✗")

	// Same colours as the notation guide.
	for _, c := range classify.Categories {
		s.categories[c] = lr.NewStyle().
			Background(lipgloss.Color(c.Colour())).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1)
	}
	return s
}

// Category returns the badge style of c.
func (s *Styles) Category(c classify.Category) lipgloss.Style {
	return s.categories[c]
}
