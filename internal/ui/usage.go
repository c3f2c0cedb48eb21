package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/prabalesh/droidinsight/internal/usage"
)

const topApps = 5

func (a *App) renderUsage() string {
	u := a.usage
	var content []string

	switch {
	case a.deps.Ranker == nil:
		content = []string{HeaderStyle.Render("App Usage"), "", MutedStyle.Render("Usage statistics are disabled.")}
	case !u.loaded:
		content = []string{HeaderStyle.Render("App Usage"), "", MutedStyle.Render("Loading today's usage...")}
	case !u.permitted:
		content = []string{
			HeaderStyle.Render("Usage Access Required"),
			"",
			"Droid Insight needs usage access to show which apps you used today.",
			"",
			WarningStyle.Render("Run it from adb shell, or grant the usage access permission"),
			WarningStyle.Render("to the account it runs under, then press u to check again."),
		}
	case u.err != nil:
		content = []string{HeaderStyle.Render("App Usage"), "", ErrorStyle.Render("Could not read usage: " + u.err.Error())}
	case len(u.entries) == 0:
		content = []string{HeaderStyle.Render("App Usage"), "", MutedStyle.Render("No app usage recorded today.")}
	default:
		content = a.usageRanking()
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) usageRanking() []string {
	entries := a.usage.entries
	content := []string{HeaderStyle.Render("Top 5 Apps Today"), ""}

	for i, e := range entries {
		if i == topApps {
			break
		}
		name := truncateString(e.AppName, 18)
		content = append(content,
			fmt.Sprintf("%-18s %s %s", name, a.usageProgress.ViewAs(e.Fraction), ValueStyle.Render(usage.FormatDuration(e.UsageTime))),
		)
	}

	var total int64
	for _, e := range entries {
		total += e.UsageTime
	}

	content = append(content, "", HeaderStyle.Render("All Apps"), "",
		TableHeaderStyle.Render(fmt.Sprintf("%-24s %10s %7s", "APP", "TIME", "SHARE")))

	nameWidth := 24
	for i, e := range entries {
		share := 0.0
		if total > 0 {
			share = float64(e.UsageTime) * 100 / float64(total)
		}
		row := fmt.Sprintf("%-24s %10s %6.1f%%", truncateString(e.AppName, nameWidth), usage.FormatDuration(e.UsageTime), share)
		style := EvenRowStyle
		if i%2 == 1 {
			style = OddRowStyle
		}
		content = append(content, style.Render(row)+" "+RenderProgressBar(share, 12))
	}

	content = append(content, "", MutedStyle.Render("Total screen time: "+usage.FormatDuration(total)))
	return content
}
