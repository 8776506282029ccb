package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relaychat/model"
)

// StartupError reports a failure that prevents the chat screen from opening,
// typically an unreachable conversation store. The user-facing message and
// the raw error are shown separately. A retryable screen closes on "r" with
// Retry set so the caller can try again.
type StartupError struct {
	title     string
	summary   string
	detail    string
	retryable bool
	retry     bool
	width     int
	height    int
}

func NewStartupError(title string, err error, retryable bool) StartupError {
	summary := model.UserMessage(err)
	detail := err.Error()
	if detail == summary {
		detail = ""
	}
	return StartupError{
		title:     title,
		summary:   summary,
		detail:    detail,
		retryable: retryable,
	}
}

// Retry reports whether the user asked to try again.
func (m StartupError) Retry() bool {
	return m.retry
}

func (m StartupError) Init() tea.Cmd {
	return nil
}

func (m StartupError) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			if m.retryable {
				m.retry = true
				return m, tea.Quit
			}
		case "enter", "esc", "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m StartupError) View() string {
	if m.width < 20 || m.height < 8 {
		return m.summary
	}

	width := min(70, m.width-6)
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	rule := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor)

	sections := []string{
		center.Bold(true).Foreground(dangerColor).Render(m.title),
		rule.Render(center.Padding(1, 0).Render(m.summary)),
	}
	if m.detail != "" {
		detail := lipgloss.NewStyle().Width(width).Foreground(dimColor).Render(m.detail)
		sections = append(sections, rule.Render(detail))
	}

	footer := FormatFooter("Enter", "Quit")
	if m.retryable {
		footer = FormatFooter("r", "Retry", "Enter", "Quit")
	}
	sections = append(sections, rule.Render(center.Render(footer)))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
