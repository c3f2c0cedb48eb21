package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) renderDashboard() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderBattery(),
		a.renderDevice(),
		a.renderMemory(),
	)
}

func (a *App) renderBattery() string {
	battery := a.battery

	levelStyle := SuccessStyle
	if battery.Level < 20 {
		levelStyle = ErrorStyle
	} else if battery.Level < 50 {
		levelStyle = WarningStyle
	}

	status := "Discharging"
	if battery.IsCharging {
		status = "Charging"
	}

	content := []string{
		HeaderStyle.Render("Battery"),
		"",
		fmt.Sprintf("%s %s", LabelStyle.Render("Level:"), levelStyle.Render(fmt.Sprintf("%d%%", battery.Level))),
		a.batteryProgress.ViewAs(float64(battery.Level) / 100.0),
		"",
		fmt.Sprintf("%s %s", LabelStyle.Render("Status:"), ValueStyle.Render(status)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Temperature:"), ValueStyle.Render(fmt.Sprintf("%.1f°C", battery.Temperature))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Voltage:"), ValueStyle.Render(fmt.Sprintf("%d mV", battery.Voltage))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Technology:"), ValueStyle.Render(battery.Technology)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Health:"), ValueStyle.Render(battery.Health)),
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderDevice() string {
	info := a.system
	content := []string{
		HeaderStyle.Render("Device"),
		"",
		fmt.Sprintf("%s %s", LabelStyle.Render("Model:"), ValueStyle.Render(info.ModelName)),
		fmt.Sprintf("%s %s", LabelStyle.Render("OS:"), ValueStyle.Render(info.OSVersion)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Manufacturer:"), ValueStyle.Render(info.Manufacturer)),
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderMemory() string {
	info := a.system
	usedRAM := info.TotalRAM - min(info.AvailableRAM, info.TotalRAM)
	usedStorage := info.TotalStorage - min(info.AvailableStorage, info.TotalStorage)

	content := []string{
		HeaderStyle.Render("Memory & Storage"),
		"",
		fmt.Sprintf("%s %s / %s", LabelStyle.Render("RAM:"), formatSize(usedRAM), formatSize(info.TotalRAM)),
		a.ramProgress.ViewAs(info.RAMUsagePercent()),
		"",
		fmt.Sprintf("%s %s / %s", LabelStyle.Render("Storage:"), formatSize(usedStorage), formatSize(info.TotalStorage)),
		a.storageProgress.ViewAs(info.StorageUsagePercent()),
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderWidgetStrip() string {
	if a.deps.Widget == nil {
		return ""
	}
	if a.widgetErr != nil {
		return ErrorStyle.Render("Widget: " + a.widgetErr.Error())
	}
	if a.widgetView.Title == "" {
		return MutedStyle.Render("Widget: waiting for first update")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		a.widgetView.String(),
		MutedStyle.Render("  home-screen widget • w: switch • r: refresh"),
	)
}
