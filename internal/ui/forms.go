package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/theme"
)

// FormWidth clamps a content width to a comfortable form width.
func FormWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// FormHeight clamps a content height for huh forms.
func FormHeight(height int) int {
	h := height - 4
	if h < 10 {
		h = 10
	}
	return h
}

// ValidateRequired returns a huh validator rejecting blank input.
func ValidateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// RenderForm frames a form view with a title and an optional error line.
func RenderForm(title, errText, body string) string {
	parts := []string{theme.TitleStyle.Render(title)}
	if errText != "" {
		parts = append(parts, theme.ErrorBannerStyle.Render(errText), "")
	}
	parts = append(parts, body)
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// CenteredText renders a gray message in the middle of the content area.
func CenteredText(width, height int, text string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}
