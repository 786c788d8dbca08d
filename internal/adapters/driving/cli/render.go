package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entraops/entracopy/internal/core/domain"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// renderReport formats the outcome of a copy batch. Counts first, then the
// per-group details, failures last so they end up nearest the prompt.
func renderReport(r *domain.CopyReport) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(okStyle.Render(fmt.Sprintf("Copied: %d", r.Succeeded)))
	b.WriteString("  ")
	b.WriteString(warnStyle.Render(fmt.Sprintf("Skipped: %d", r.Skipped)))
	b.WriteString("  ")
	b.WriteString(failStyle.Render(fmt.Sprintf("Failed: %d", r.Failed)))
	b.WriteString("\n")

	for _, name := range r.Copied {
		b.WriteString(fmt.Sprintf("  %s %s\n", okStyle.Render("+"), name))
	}
	for _, name := range r.SkippedGroups {
		b.WriteString(fmt.Sprintf("  %s %s (already a member)\n", warnStyle.Render("="), name))
	}
	for _, f := range r.Failures {
		b.WriteString(fmt.Sprintf("  %s %s: %s\n", failStyle.Render("x"), f.GroupName, f.Reason))
	}
	return b.String()
}
