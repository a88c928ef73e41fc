package cli

import (
	"github.com/charmbracelet/lipgloss"

	"trellis/internal/vault"
)

// Color styles for consistent output
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("99"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	IssueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	ProjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141"))

	BlockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// Status colors
	BacklogStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	TodoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("228"))
	InProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	DoneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	CancelledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)

	// Priority colors
	UrgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	HighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	MediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	LowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// FormatSuccess formats a success message
func FormatSuccess(msg string) string {
	return SuccessStyle.Render("✅ " + msg)
}

// FormatError formats an error message
func FormatError(msg string) string {
	return ErrorStyle.Render("❌ " + msg)
}

// FormatStatus formats a workflow status with its color
func FormatStatus(status vault.Status) string {
	switch status {
	case vault.StatusBacklog:
		return BacklogStyle.Render(string(status))
	case vault.StatusTodo:
		return TodoStyle.Render(string(status))
	case vault.StatusInProgress:
		return InProgressStyle.Render(string(status))
	case vault.StatusDone:
		return DoneStyle.Render(string(status))
	case vault.StatusCancelled:
		return CancelledStyle.Render(string(status))
	}
	return string(status)
}

// FormatPriority formats a priority with its color
func FormatPriority(priority vault.Priority) string {
	switch priority {
	case vault.PriorityUrgent:
		return UrgentStyle.Render("URGENT")
	case vault.PriorityHigh:
		return HighStyle.Render("HIGH")
	case vault.PriorityMedium:
		return MediumStyle.Render("MED")
	case vault.PriorityLow:
		return LowStyle.Render("LOW")
	}
	return DimStyle.Render("UNKNOWN")
}

// FormatName formats an entity name with its type color
func FormatName(entity *vault.Entity) string {
	if entity.Frontmatter.Type == vault.EntityProject {
		return ProjectStyle.Render(entity.Name())
	}
	return IssueStyle.Render(entity.Name())
}
