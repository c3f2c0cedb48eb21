package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/prabalesh/droidinsight/internal/config"
	"github.com/prabalesh/droidinsight/internal/netbench"
	"github.com/prabalesh/droidinsight/internal/ui"
	"github.com/prabalesh/droidinsight/internal/usage"
)

const defaultConfigPath = "droidinsight.yaml"

func main() {
	cmd := "tui"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "tui":
		err = tuiCommand(args)
	case "serve":
		err = serveCommand(args)
	case "widget":
		err = widgetCommand(args)
	case "usage":
		err = usageCommand(args)
	case "validate":
		err = validateCommand(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("droidinsight %s: %v", cmd, err)
	}
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", defaultConfigPath, "Path to configuration file")
}

func tuiCommand(args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// the terminal belongs to the UI, so logs go to a file
	logger, closeLog, err := newFileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.watchConfig(ctx, *cfgPath)
	rt.startBackground(ctx)

	app := ui.NewApp(ctx, ui.Deps{
		Battery:   rt.battery,
		System:    rt.system,
		Network:   rt.network,
		Ranker:    rt.ranker,
		Widget:    rt.widget,
		Benchmark: netbench.New(cfg.Benchmark.URL),
		Stats:     netbench.NewStats(),
		Logger:    logger,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// serveCommand runs the widget refresh job and the metrics endpoint without
// a UI, for devices driven over adb or hosts feeding a status bar.
func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := configFlag(fs)
	addr := fs.String("metrics-addr", "", "Override metrics.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Metrics.Addr = *addr
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.watchConfig(ctx, *cfgPath)
	rt.startBackground(ctx)

	logger.Info("serving", "widget_output", cfg.Widget.OutputFile, "metrics", cfg.Metrics.Addr)
	<-ctx.Done()
	rt.scheduler.Wait()
	return nil
}

func widgetCommand(args []string) error {
	fs := flag.NewFlagSet("widget", flag.ExitOnError)
	cfgPath := configFlag(fs)
	line := fs.Bool("line", false, "Print a single status line instead of the card")
	if err := fs.Parse(args); err != nil {
		return err
	}
	action := "show"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	w := newWidget(cfg, logger)

	op := w.Update
	switch action {
	case "show":
	case "toggle":
		op = w.Toggle
	case "refresh":
		op = w.Refresh
	default:
		return fmt.Errorf("unknown widget action %q (show, toggle, refresh)", action)
	}

	v, err := op(ctx)
	if err != nil {
		return err
	}
	if *line {
		fmt.Println(v.Line())
	} else {
		fmt.Println(v.String())
	}
	return nil
}

func usageCommand(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	cfgPath := configFlag(fs)
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ranker, closeStore, err := newRanker(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	if !ranker.HasPermission(ctx) {
		return usage.ErrNoPermission
	}
	entries, err := ranker.TodayUsageStats(ctx, time.Now())
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "APP\tPACKAGE\tTIME\tRELATIVE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\n", e.AppName, e.PackageName, usage.FormatDuration(e.UsageTime), e.Fraction*100)
	}
	return tw.Flush()
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.Load(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func printUsage() {
	fmt.Printf(`Droid Insight

Usage:
  droidinsight [command] [flags]

Commands:
  tui        Interactive dashboard (default)
  serve      Run the widget refresh job and metrics endpoint without a UI
  widget     Show, toggle or refresh the home-screen widget
  usage      Print today's app usage ranking
  validate   Load and validate a config file

Examples:
  droidinsight -config ./droidinsight.yaml
  droidinsight serve -metrics-addr :9100
  droidinsight widget toggle
  droidinsight widget -line show
  droidinsight usage -json
`)
}
