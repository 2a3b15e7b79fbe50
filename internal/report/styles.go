package report

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#A78BFA")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")
	borderColor  = lipgloss.Color("#6B7280")
)

// styles holds the lipgloss styles bound to one renderer, so colour is
// only emitted when the destination supports it.
type styles struct {
	title    lipgloss.Style
	persona  lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	content  lipgloss.Style
	summary  lipgloss.Style
	faithful lipgloss.Style
	mutation lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(primaryColor),
		persona:  r.NewStyle().Bold(true),
		muted:    r.NewStyle().Foreground(mutedColor),
		success:  r.NewStyle().Foreground(successColor),
		warning:  r.NewStyle().Foreground(warningColor),
		failure:  r.NewStyle().Foreground(errorColor),
		content:  r.NewStyle().PaddingLeft(4),
		summary:  r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderColor).Padding(0, 1),
		faithful: r.NewStyle().Bold(true).Foreground(successColor),
		mutation: r.NewStyle().Bold(true).Foreground(errorColor),
	}
}
