package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prabalesh/droidinsight/internal/models"
	"github.com/prabalesh/droidinsight/internal/widget"
)

// Stream messages carry the id of the subscription set that produced them.
type batteryMsg struct {
	sub  int
	info models.BatteryInfo
}

type systemMsg struct {
	sub  int
	info models.SystemInfo
}

type networkMsg struct {
	sub  int
	rate models.NetworkRate
}

type streamClosedMsg struct{ sub int }

type usageMsg struct {
	permitted bool
	entries   []models.UsageEntry
	err       error
}

type widgetMsg struct {
	view widget.View
	err  error
}

type benchDoneMsg struct{ err error }

// listen waits for the next value on ch.
func listen[T any](sub int, ch <-chan T, wrap func(sub int, v T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return streamClosedMsg{sub}
		}
		return wrap(sub, v)
	}
}

func (a *App) listenBattery() tea.Cmd {
	if a.subs.battery == nil {
		return nil
	}
	return listen(a.subID, a.subs.battery.C, func(sub int, v models.BatteryInfo) tea.Msg {
		return batteryMsg{sub, v}
	})
}

func (a *App) listenSystem() tea.Cmd {
	if a.subs.system == nil {
		return nil
	}
	return listen(a.subID, a.subs.system.C, func(sub int, v models.SystemInfo) tea.Msg {
		return systemMsg{sub, v}
	})
}

func (a *App) listenNetwork() tea.Cmd {
	if a.subs.network == nil {
		return nil
	}
	return listen(a.subID, a.subs.network.C, func(sub int, v models.NetworkRate) tea.Msg {
		return networkMsg{sub, v}
	})
}

type widgetOp func(ctx context.Context) (widget.View, error)

func (d Deps) widgetUpdate() widgetOp {
	if d.Widget == nil {
		return nil
	}
	return d.Widget.Update
}

func (d Deps) widgetToggle() widgetOp {
	if d.Widget == nil {
		return nil
	}
	return d.Widget.Toggle
}

func (d Deps) widgetRefresh() widgetOp {
	if d.Widget == nil {
		return nil
	}
	return d.Widget.Refresh
}
