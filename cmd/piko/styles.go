package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared by every command summary
const (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
)

var (
	// TitleStyle is for headers
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// SubtitleStyle is for secondary text
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// SuccessStyle is for positive outcomes
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)

	// ErrorStyle is for failures
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)

	// WarningStyle is for skipped work and caution
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)

	labelStyle = lipgloss.NewStyle().Width(14).Foreground(ColorMuted)
)

// field renders one aligned "label value" line
func field(label string, value interface{}) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}
