package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/prabalesh/droidinsight/internal/netbench"
)

const chartHeight = 6

var sparkBlocks = []rune(" ▁▂▃▄▅▆▇█")

func (a *App) renderNetwork() string {
	content := []string{
		HeaderStyle.Render("Network Speed"),
		"",
		fmt.Sprintf("%s %s", LabelStyle.Render("Download:"), ValueStyle.Render(netbench.FormatSpeed(a.rate.DownloadSpeed))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Upload:"), ValueStyle.Render(netbench.FormatSpeed(a.rate.UploadSpeed))),
	}

	if a.deps.Stats != nil {
		width := max(10, min(netbench.HistorySize, a.width-10))
		content = append(content,
			"",
			HeaderStyle.Render("Download (last 60s)"),
			ChartStyle.Render(renderChart(a.deps.Stats.History(), width, chartHeight)),
		)
	}

	if a.deps.Benchmark != nil {
		content = append(content, "", HeaderStyle.Render("Speed Test"), "")
		switch {
		case a.deps.Benchmark.Running():
			content = append(content, WarningStyle.Render("Downloading test file... press b to stop"))
		case a.benchErr != nil:
			content = append(content, ErrorStyle.Render("Test failed: "+a.benchErr.Error()))
		default:
			content = append(content, MutedStyle.Render("Press b to start a download test"))
		}
		if a.deps.Stats != nil {
			content = append(content,
				fmt.Sprintf("%s %s", LabelStyle.Render("Max:"), ValueStyle.Render(netbench.FormatSpeed(a.deps.Stats.Max()))),
				fmt.Sprintf("%s %s", LabelStyle.Render("Avg:"), ValueStyle.Render(netbench.FormatSpeed(a.deps.Stats.Avg()))),
			)
		}
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

// renderChart draws the newest width samples as a block chart, height rows
// tall, scaled to the largest sample shown.
func renderChart(samples []int64, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	var peak int64
	for _, v := range samples {
		peak = max(peak, v)
	}

	steps := len(sparkBlocks) - 1
	levels := make([]int, width)
	offset := width - len(samples)
	for i, v := range samples {
		if peak > 0 && v > 0 {
			levels[offset+i] = max(1, int(v*int64(height*steps)/peak))
		}
	}

	rows := make([]string, height)
	for r := 0; r < height; r++ {
		floor := (height - 1 - r) * steps
		var b strings.Builder
		for _, level := range levels {
			fill := min(max(level-floor, 0), steps)
			b.WriteRune(sparkBlocks[fill])
		}
		rows[r] = b.String()
	}
	return strings.Join(rows, "\n")
}
