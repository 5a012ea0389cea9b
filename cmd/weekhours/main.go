package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"weekhours/internal/capture"
	"weekhours/internal/chip"
	"weekhours/internal/config"
	"weekhours/internal/ics"
	"weekhours/internal/ledger"
	appLog "weekhours/internal/log"
	"weekhours/internal/model"
	"weekhours/internal/summary"
	"weekhours/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	input      string
	icsInput   string
	once       bool
	format     string
	filter     string
	output     string
	debug      bool
	headful    bool
	screenshot string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("weekhours starting", "version", "0.1.0")
	appLog.Debug("effective config",
		"listen", conf.Listen,
		"calendar_url", conf.CalendarURL,
		"refresh", conf.RefreshCron,
		"projects", len(conf.Projects),
		"meeting_links", len(conf.MeetingProjects),
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.input != "" || flags.icsInput != "" || flags.once {
		if err := runOnce(ctx, conf, flags, os.Stdout); err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, flags); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("weekhours exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./weekhours.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.input, "input", "", "Parse chips from a JSON file and exit")
	flag.StringVar(&cfg.icsInput, "ics", "", "Read events from an .ics file and exit")
	flag.BoolVar(&cfg.once, "once", false, "Scrape the week view once, print the result and exit")
	flag.StringVar(&cfg.format, "format", "json", "Output format for one-shot runs: json, csv, hours or ics")
	flag.StringVar(&cfg.filter, "filter", "week", "Day filter for csv/hours output: week or monday..friday")
	flag.StringVar(&cfg.output, "out", "", "Write one-shot output to this file instead of stdout")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.headful, "headful", false, "Show the Chromium window (useful to sign in once)")
	flag.StringVar(&cfg.screenshot, "screenshot", "", "Save a PNG of the week view after scraping")

	flag.Parse()

	return cfg
}

// scrapeOptions builds capture options from config and flags.
func scrapeOptions(conf *config.Config, flags flagConfig) capture.ScrapeOptions {
	return capture.ScrapeOptions{
		URL:            conf.CalendarURL,
		ProfileDir:     conf.ChromeProfileDir,
		Headless:       !flags.headful,
		ScreenshotPath: flags.screenshot,
		Timeout:        time.Duration(conf.CaptureTimeoutSec) * time.Second,
	}
}

// newRefresher returns the scrape+parse pipeline used by serve mode and -once.
func newRefresher(conf *config.Config, flags flagConfig) web.Refresher {
	opts := scrapeOptions(conf, flags)
	return func(ctx context.Context) ([]model.ParsedEvent, error) {
		chips, err := capture.ScrapeWeek(ctx, opts)
		if err != nil {
			return nil, err
		}
		return chip.Parse(chips, time.Now()), nil
	}
}

// loadEvents picks the event source for a one-shot run.
func loadEvents(ctx context.Context, conf *config.Config, flags flagConfig) ([]model.ParsedEvent, error) {
	switch {
	case flags.input != "":
		chips, err := capture.LoadChips(flags.input)
		if err != nil {
			return nil, err
		}
		return chip.Parse(chips, time.Now()), nil
	case flags.icsInput != "":
		body, err := os.ReadFile(flags.icsInput)
		if err != nil {
			return nil, err
		}
		return ics.Decode(body, time.Local)
	default:
		return newRefresher(conf, flags)(ctx)
	}
}

func runOnce(ctx context.Context, conf *config.Config, flags flagConfig, stdout io.Writer) error {
	f, err := summary.ParseFilter(flags.filter)
	if err != nil {
		return err
	}

	events, err := loadEvents(ctx, conf, flags)
	if err != nil {
		return err
	}
	appLog.Info("events loaded", "count", len(events))

	var buf bytes.Buffer
	if err := render(&buf, conf, flags, events, f); err != nil {
		return err
	}

	if flags.output == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(flags.output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	appLog.Info("output written", "path", flags.output, "format", flags.format)
	return nil
}

func render(w io.Writer, conf *config.Config, flags flagConfig, events []model.ParsedEvent, f summary.Filter) error {
	switch flags.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	case "csv":
		linker := summary.NewLinker(conf.Projects, conf.MeetingProjects)
		rows := linker.Annotate(summary.Totals(events, f))
		saveLinks(conf, flags.configPath, linker)
		return summary.WriteSummaryCSV(w, rows)
	case "hours":
		linker := summary.NewLinker(conf.Projects, conf.MeetingProjects)
		linker.Annotate(summary.Totals(events, summary.FilterWeek))
		saveLinks(conf, flags.configPath, linker)
		return summary.WriteProjectHoursCSV(w, summary.ProjectHours(events, f, linker.Mapping()), f)
	case "ics":
		body, err := ics.Export(events, time.Local, time.Now())
		if err != nil {
			return err
		}
		_, err = w.Write(body)
		return err
	default:
		return fmt.Errorf("unknown format %q", flags.format)
	}
}

func saveLinks(conf *config.Config, path string, linker *summary.Linker) {
	if !linker.Changed() {
		return
	}
	conf.MeetingProjects = linker.Mapping()
	if err := conf.Save(path); err != nil {
		appLog.Error("failed to save meeting links", err, "config_path", path)
	}
}

// serve runs the HTTP API and refreshes the week on conf.RefreshCron until
// ctx is cancelled.
func serve(ctx context.Context, conf *config.Config, flags flagConfig) error {
	srv := web.NewServer(conf, flags.configPath, newRefresher(conf, flags))

	statePath := conf.StatePath(flags.configPath)
	store, err := ledger.Open(statePath)
	if err != nil {
		return err
	}
	defer store.Close()
	srv.UseLedger(store)
	appLog.Info("ledger opened", "path", statePath)

	g, gctx := errgroup.WithContext(ctx)

	refresh := func() {
		if err := srv.Refresh(gctx); err != nil && !errors.Is(err, context.Canceled) {
			appLog.Error("scheduled refresh failed", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	g.Go(func() error {
		return srv.Serve(gctx)
	})
	// First scrape right away rather than waiting for the schedule.
	g.Go(func() error {
		refresh()
		return nil
	})

	return g.Wait()
}
