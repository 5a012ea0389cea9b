package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

// Default scrape parameters. The viewport is wide enough for the week view
// to render every day column.
const (
	DefaultWidth      = 1600
	DefaultHeight     = 1200
	DefaultTimeoutSec = 60

	// ChipSelector matches one rendered event chip in the week view.
	ChipSelector = `[data-eventchip]`
)

// ScrapeOptions defines parameters for a Chromium-based week-view scrape.
type ScrapeOptions struct {
	// URL of the week view, e.g.
	// "https://calendar.google.com/calendar/u/0/r/week".
	URL string

	// ProfileDir is a Chromium user data dir with a signed-in session.
	// Empty uses a throwaway profile.
	ProfileDir string

	// Headless runs Chromium without a window. A visible window is useful
	// to sign in once into ProfileDir.
	Headless bool

	// ScreenshotPath, if set, receives a PNG of the page after the chips
	// are collected.
	ScreenshotPath string

	Width   int
	Height  int
	Timeout time.Duration
}

// chipScript collects every chip's info text, aria-label and response
// status. The info element holds the "from ... to ..." text; chips that lack
// it fall back to their own text.
const chipScript = `Array.from(document.querySelectorAll('[data-eventchip]')).map(function (c) {
  var info = c.querySelector('.XuJrye');
  return {
    text: ((info || c).textContent || '').trim(),
    ariaLabel: c.getAttribute('aria-label') || '',
    responseStatus: (c.dataset && c.dataset.responseStatus) || ''
  };
})`

// rawChip mirrors one element of chipScript's result.
type rawChip struct {
	Text           string `json:"text"`
	AriaLabel      string `json:"ariaLabel"`
	ResponseStatus string `json:"responseStatus"`
}

// ScrapeWeek launches Chromium via chromedp, navigates to opts.URL, waits
// for the first event chip to become visible and returns every chip on the
// page in DOM order.
func ScrapeWeek(parentCtx context.Context, opts ScrapeOptions) ([]model.Chip, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var raw []rawChip
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ChipSelector, chromedp.ByQuery),
		// Chips render in batches; give the last columns a moment.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Evaluate(chipScript, &raw),
	}

	appLog.Info("capture start", "url", opts.URL, "headless", opts.Headless)
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if opts.ScreenshotPath != "" {
		var png []byte
		if err := chromedp.Run(ctx, chromedp.FullScreenshot(&png, 90)); err != nil {
			appLog.Error("capture screenshot failed", err)
		} else if err := os.WriteFile(opts.ScreenshotPath, png, 0o644); err != nil {
			appLog.Error("capture screenshot write failed", err, "path", opts.ScreenshotPath)
		}
	}

	chips := toChips(raw)
	appLog.Info("capture completed", "chip_count", len(chips))
	return chips, nil
}

func toChips(raw []rawChip) []model.Chip {
	chips := make([]model.Chip, 0, len(raw))
	for _, r := range raw {
		c := model.Chip{
			Text:      r.Text,
			AriaLabel: r.AriaLabel,
			Declined:  DeclinedFromHints(r.AriaLabel, r.ResponseStatus),
		}
		if r.ResponseStatus != "" {
			c.Attributes = map[string]string{"response_status": r.ResponseStatus}
		}
		chips = append(chips, c)
	}
	return chips
}
