package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prabalesh/droidinsight/internal/models"
	"github.com/prabalesh/droidinsight/internal/netbench"
	"github.com/prabalesh/droidinsight/internal/stream"
	"github.com/prabalesh/droidinsight/internal/usage"
	"github.com/prabalesh/droidinsight/internal/widget"
)

const (
	tabDashboard = iota
	tabUsage
	tabNetwork
)

// Deps are the long-lived components the screens read from. Any of them
// may be nil; the matching panel then shows nothing.
type Deps struct {
	Battery   *stream.Shared[models.BatteryInfo]
	System    *stream.Shared[models.SystemInfo]
	Network   *stream.Shared[models.NetworkRate]
	Ranker    *usage.Ranker
	Widget    *widget.Widget
	Benchmark *netbench.Benchmark
	Stats     *netbench.Stats
	Logger    *slog.Logger
}

type App struct {
	ctx    context.Context
	deps   Deps
	logger *slog.Logger

	activeTab int
	tabs      []string
	width     int
	height    int
	// Tab scrolling state
	tabScrollOffset int
	// Vertical scrolling state
	verticalScrollOffset int
	contentHeight        int

	// subscriptions owned by the visible tab
	subs  tabSubs
	subID int

	battery models.BatteryInfo
	system  models.SystemInfo
	rate    models.NetworkRate

	usage usageState

	widgetView widget.View
	widgetErr  error

	benchDone chan error
	benchErr  error

	batteryProgress progress.Model
	ramProgress     progress.Model
	storageProgress progress.Model
	usageProgress   progress.Model
}

type usageState struct {
	loaded    bool
	permitted bool
	entries   []models.UsageEntry
	err       error
}

func NewApp(ctx context.Context, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		ctx:             ctx,
		deps:            deps,
		logger:          logger,
		tabs:            []string{"Dashboard", "Usage", "Network"},
		battery:         models.NewBatteryInfo(),
		system:          models.NewSystemInfo(),
		benchDone:       make(chan error, 1),
		batteryProgress: progress.New(progress.WithSolidFill("#04B575")),
		ramProgress:     progress.New(progress.WithDefaultGradient()),
		storageProgress: progress.New(progress.WithDefaultGradient()),
		usageProgress:   progress.New(progress.WithScaledGradient("#5A56E0", "#EE6FF8")),
	}
	if deps.Battery != nil {
		a.battery = deps.Battery.Value()
	}
	if deps.System != nil {
		a.system = deps.System.Value()
	}
	return a
}

// Close releases the visible tab's subscriptions and stops a running
// benchmark. Call it after the program exits.
func (a *App) Close() {
	a.closeSubs()
	if a.deps.Benchmark != nil {
		a.deps.Benchmark.Stop()
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.enterTab(tabDashboard),
		a.widgetCmd(a.deps.widgetUpdate()),
	)
}

type tabSubs struct {
	battery *stream.Subscription[models.BatteryInfo]
	system  *stream.Subscription[models.SystemInfo]
	network *stream.Subscription[models.NetworkRate]
}

func (a *App) closeSubs() {
	if a.subs.battery != nil {
		a.subs.battery.Close()
	}
	if a.subs.system != nil {
		a.subs.system.Close()
	}
	if a.subs.network != nil {
		a.subs.network.Close()
	}
	a.subs = tabSubs{}
}

// enterTab drops the previous tab's subscriptions and starts the ones the
// new tab renders from. Messages from older subscriptions carry a stale id
// and are ignored.
func (a *App) enterTab(tab int) tea.Cmd {
	a.closeSubs()
	a.subID++
	a.activeTab = tab
	a.verticalScrollOffset = 0

	var cmds []tea.Cmd
	switch tab {
	case tabDashboard:
		if a.deps.Battery != nil {
			a.subs.battery = a.deps.Battery.Subscribe()
			cmds = append(cmds, a.listenBattery())
		}
		if a.deps.System != nil {
			a.subs.system = a.deps.System.Subscribe()
			cmds = append(cmds, a.listenSystem())
		}
	case tabUsage:
		cmds = append(cmds, a.loadUsage())
	case tabNetwork:
		if a.deps.Network != nil {
			a.subs.network = a.deps.Network.Subscribe()
			cmds = append(cmds, a.listenNetwork())
		}
	}
	return tea.Batch(cmds...)
}

// Calculate visible tabs based on screen width and scroll offset
func (a *App) getVisibleTabs() ([]string, []int, bool, bool) {
	a.ensureActiveTabVisible()
	return a.getVisibleTabsRaw()
}

// Ensure the active tab is visible by adjusting scroll offset
func (a *App) ensureActiveTabVisible() {
	if a.activeTab < a.tabScrollOffset {
		a.tabScrollOffset = a.activeTab
		return
	}

	_, visibleIndices, _, _ := a.getVisibleTabsRaw()
	if len(visibleIndices) > 0 {
		lastVisible := visibleIndices[len(visibleIndices)-1]
		if a.activeTab > lastVisible {
			a.tabScrollOffset = max(0, a.activeTab-1)
		}
	}
}

func (a *App) getVisibleTabsRaw() ([]string, []int, bool, bool) {
	if a.width <= 0 {
		return a.tabs, []int{}, false, false
	}

	estimatedTabWidth := func(tabName string) int {
		return len(tabName) + 6 // padding and margins
	}

	visibleTabs := []string{}
	visibleIndices := []int{}
	currentWidth := 0
	availableWidth := a.width - 10

	for i := a.tabScrollOffset; i < len(a.tabs); i++ {
		tabWidth := estimatedTabWidth(a.tabs[i])
		if currentWidth+tabWidth > availableWidth && len(visibleTabs) > 0 {
			break
		}
		visibleTabs = append(visibleTabs, a.tabs[i])
		visibleIndices = append(visibleIndices, i)
		currentWidth += tabWidth
	}

	canScrollLeft := a.tabScrollOffset > 0
	canScrollRight := a.tabScrollOffset+len(visibleTabs) < len(a.tabs)

	return visibleTabs, visibleIndices, canScrollLeft, canScrollRight
}

// Height available for content: title, tabs, widget strip and help are sticky.
func (a *App) getContentAreaHeight() int {
	reservedHeight := 12
	return max(1, a.height-reservedHeight)
}

func (a *App) getMaxScrollOffset() int {
	availableHeight := a.getContentAreaHeight()
	if a.contentHeight <= availableHeight {
		return 0
	}
	return a.contentHeight - availableHeight
}

func (a *App) clampVerticalScroll() {
	maxOffset := a.getMaxScrollOffset()
	a.verticalScrollOffset = max(0, min(a.verticalScrollOffset, maxOffset))
}

// Apply vertical scrolling to content by truncating lines
func (a *App) applyVerticalScroll(content string) string {
	lines := strings.Split(content, "\n")
	a.contentHeight = len(lines)

	a.clampVerticalScroll()

	availableHeight := a.getContentAreaHeight()
	if len(lines) <= availableHeight {
		return content
	}

	startLine := a.verticalScrollOffset
	endLine := min(startLine+availableHeight, len(lines))
	result := strings.Join(lines[startLine:endLine], "\n")

	if a.verticalScrollOffset > 0 {
		result = ScrollHintStyle.Render("▲ More content above") + "\n" + result
	}
	if a.verticalScrollOffset < a.getMaxScrollOffset() {
		result = result + "\n" + ScrollHintStyle.Render("▼ More content below")
	}
	return result
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		barWidth := max(10, min(50, a.width-20))
		a.batteryProgress.Width = barWidth
		a.ramProgress.Width = barWidth
		a.storageProgress.Width = barWidth
		a.usageProgress.Width = max(10, min(40, a.width-40))
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case batteryMsg:
		if msg.sub != a.subID {
			return a, nil
		}
		a.battery = msg.info
		return a, a.listenBattery()

	case systemMsg:
		if msg.sub != a.subID {
			return a, nil
		}
		a.system = msg.info
		return a, a.listenSystem()

	case networkMsg:
		if msg.sub != a.subID {
			return a, nil
		}
		a.rate = msg.rate
		if a.deps.Stats != nil {
			a.deps.Stats.Record(msg.rate, a.benchmarkRunning())
		}
		return a, a.listenNetwork()

	case streamClosedMsg:
		return a, nil

	case usageMsg:
		a.usage = usageState{
			loaded:    true,
			permitted: msg.permitted,
			entries:   msg.entries,
			err:       msg.err,
		}
		return a, nil

	case widgetMsg:
		a.widgetErr = msg.err
		if msg.err == nil {
			a.widgetView = msg.view
		} else {
			a.logger.Warn("widget update failed", "error", msg.err)
		}
		return a, nil

	case benchDoneMsg:
		a.benchErr = msg.err
		if msg.err != nil {
			a.logger.Warn("benchmark failed", "error", msg.err)
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		a.Close()
		return tea.Quit
	case "left", "h":
		if a.activeTab > 0 {
			return a.enterTab(a.activeTab - 1)
		}
	case "right", "l":
		if a.activeTab < len(a.tabs)-1 {
			return a.enterTab(a.activeTab + 1)
		}
	case "tab":
		return a.enterTab((a.activeTab + 1) % len(a.tabs))
	case "shift+left", "H":
		if a.tabScrollOffset > 0 {
			a.tabScrollOffset--
		}
	case "shift+right", "L":
		if _, _, _, canScrollRight := a.getVisibleTabs(); canScrollRight {
			a.tabScrollOffset++
		}
	case "up", "k":
		if a.verticalScrollOffset > 0 {
			a.verticalScrollOffset--
		}
	case "down", "j":
		a.verticalScrollOffset++
		a.clampVerticalScroll()
	case "pgup", "ctrl+u":
		scrollAmount := max(1, a.getContentAreaHeight()/2)
		a.verticalScrollOffset = max(0, a.verticalScrollOffset-scrollAmount)
	case "pgdown", "ctrl+d":
		scrollAmount := max(1, a.getContentAreaHeight()/2)
		a.verticalScrollOffset += scrollAmount
		a.clampVerticalScroll()
	case "home":
		a.verticalScrollOffset = 0
	case "end":
		a.verticalScrollOffset = a.getMaxScrollOffset()
	case "w":
		return a.widgetCmd(a.deps.widgetToggle())
	case "r":
		return a.widgetCmd(a.deps.widgetRefresh())
	case "u":
		if a.activeTab == tabUsage {
			return a.loadUsage()
		}
	case "b":
		if a.activeTab == tabNetwork {
			return a.toggleBenchmark()
		}
	}
	return nil
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	title := TitleStyle.Width(a.width).Render("Droid Insight")
	tabs := a.renderTabs()

	var content string
	switch a.activeTab {
	case tabDashboard:
		content = a.renderDashboard()
	case tabUsage:
		content = a.renderUsage()
	case tabNetwork:
		content = a.renderNetwork()
	}

	scrollableContent := a.applyVerticalScroll(content)

	help := HelpStyle.Render("←/→ h/l: tabs • ↑/↓ k/j: scroll • w: widget mode • r: refresh widget • u: reload usage • b: benchmark • q: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		tabs,
		"",
		scrollableContent,
		"",
		a.renderWidgetStrip(),
		help,
	)
}

func (a *App) renderTabs() string {
	visibleTabs, visibleIndices, canScrollLeft, canScrollRight := a.getVisibleTabs()

	var tabElements []string
	if canScrollLeft {
		tabElements = append(tabElements, ScrollHintStyle.Render("‹"))
	}
	for i, tab := range visibleTabs {
		if visibleIndices[i] == a.activeTab {
			tabElements = append(tabElements, ActiveTabStyle.Render(tab))
		} else {
			tabElements = append(tabElements, InactiveTabStyle.Render(tab))
		}
	}
	if canScrollRight {
		tabElements = append(tabElements, ScrollHintStyle.Render("›"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Left, tabElements...)
}

func (a *App) loadUsage() tea.Cmd {
	ranker := a.deps.Ranker
	if ranker == nil {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if !ranker.HasPermission(ctx) {
			return usageMsg{}
		}
		entries, err := ranker.TodayUsageStats(ctx, time.Now())
		return usageMsg{permitted: true, entries: entries, err: err}
	}
}

func (a *App) benchmarkRunning() bool {
	return a.deps.Benchmark != nil && a.deps.Benchmark.Running()
}

func (a *App) toggleBenchmark() tea.Cmd {
	b := a.deps.Benchmark
	if b == nil {
		return nil
	}
	if b.Running() {
		b.Stop()
		return nil
	}

	if a.deps.Stats != nil {
		a.deps.Stats.Reset()
	}
	a.benchErr = nil
	done := a.benchDone
	if !b.Start(a.ctx, func(err error) { done <- err }) {
		return nil
	}
	return func() tea.Msg {
		return benchDoneMsg{err: <-done}
	}
}

func (a *App) widgetCmd(op widgetOp) tea.Cmd {
	if op == nil {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		v, err := op(ctx)
		return widgetMsg{view: v, err: err}
	}
}
