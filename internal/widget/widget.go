package widget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Probe supplies the values the widget displays.
type Probe interface {
	BatteryLevel(ctx context.Context) int
	RAMUsagePercent(ctx context.Context) int
}

// Widget is the status-line card. Every change is persisted to the state
// file and the rendered card is written to OutputFile.
type Widget struct {
	State      StateStore
	Probe      Probe
	OutputFile string
	Logger     *slog.Logger
	Now        func() time.Time

	mu sync.Mutex
}

func New(stateFile, outputFile string, probe Probe, logger *slog.Logger) *Widget {
	if logger == nil {
		logger = slog.Default()
	}
	return &Widget{
		State:      StateStore{Path: stateFile},
		Probe:      probe,
		OutputFile: outputFile,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Toggle advances to the next mode and redraws.
func (w *Widget) Toggle(ctx context.Context) (View, error) {
	return w.mutate(ctx, func(st *State) { st.CurrentMode = st.CurrentMode.Next() })
}

// Refresh stamps the state so the card is redrawn with fresh values.
func (w *Widget) Refresh(ctx context.Context) (View, error) {
	return w.mutate(ctx, func(*State) {})
}

// Update redraws the card for the persisted mode.
func (w *Widget) Update(ctx context.Context) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, err := w.State.Load()
	if err != nil {
		w.Logger.Warn("widget state unreadable, drawing default", "path", w.State.Path, "error", err)
		st = State{}
	}
	return w.draw(ctx, st)
}

func (w *Widget) mutate(ctx context.Context, change func(*State)) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, err := w.State.Load()
	if err != nil {
		w.Logger.Warn("widget state unreadable, starting over", "path", w.State.Path, "error", err)
		st = State{}
	}
	change(&st)
	st.LastUpdated = w.Now().UnixMilli()
	if err := w.State.Save(st); err != nil {
		return View{}, err
	}
	return w.draw(ctx, st)
}

func (w *Widget) draw(ctx context.Context, st State) (View, error) {
	v := View{Mode: st.CurrentMode, UpdatedAt: st.LastUpdated}
	switch st.CurrentMode {
	case ModeRAM:
		v.Title, v.Percent = "RAM Usage", w.Probe.RAMUsagePercent(ctx)
	default:
		v.Title, v.Percent = "Battery", w.Probe.BatteryLevel(ctx)
	}

	if w.OutputFile != "" {
		var buf bytes.Buffer
		buf.WriteString(v.Render(lipgloss.NewRenderer(io.Discard)))
		buf.WriteByte('\n')
		if err := writeAtomic(w.OutputFile, buf.Bytes()); err != nil {
			return v, err
		}
	}
	w.Logger.Debug("widget updated", "mode", v.Mode, "percent", v.Percent)
	return v, nil
}

// View is one rendered widget state.
type View struct {
	Mode      Mode
	Title     string
	Percent   int
	UpdatedAt int64
}

// Line is the compact form for status bars.
func (v View) Line() string {
	return fmt.Sprintf("%s %d%%", v.Title, v.Percent)
}

func (v View) accent() lipgloss.Color {
	if v.Mode == ModeRAM {
		return lipgloss.Color("33")
	}
	return lipgloss.Color("46")
}

// Render draws the card with the given renderer; a renderer over a
// non-terminal writer drops colors.
func (v View) Render(r *lipgloss.Renderer) string {
	title := r.NewStyle().Bold(true).Foreground(v.accent()).Render(v.Title)
	value := r.NewStyle().Bold(true).Render(fmt.Sprintf("%d%%", v.Percent))
	return r.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(v.accent()).
		Padding(0, 2).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, title, value))
}

func (v View) String() string {
	return v.Render(lipgloss.DefaultRenderer())
}
