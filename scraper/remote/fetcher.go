package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"networth-analyzer/config"
	"networth-analyzer/storage"
	"networth-analyzer/utils"
)

// Fetcher loads tabular sources published on the web through a headless
// browser, so exports rendered client-side are read the same as plain files.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// IsRemote reports whether source should be fetched over the network.
func IsRemote(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Open fetches url and returns its text body. Missing pages (404/410) yield
// storage.ErrSourceNotFound without retrying.
func (f *Fetcher) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	chromeBin := f.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	f.logger.Debug("[remote] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var body string
	err := f.retry.Do(ctx, "fetch "+url, func() error {
		text, err := f.fetchOnce(browserCtx, url)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	f.logger.Info("[remote] Fetched %s (%d bytes)", url, len(body))
	return io.NopCloser(strings.NewReader(body)), nil
}

// fetchOnce loads url in a fresh tab. Responses Chrome renders inline are read
// from the page text; responses it treats as downloads (text/csv, attachments)
// are saved to a temporary directory and read from disk.
func (f *Fetcher) fetchOnce(browserCtx context.Context, url string) (string, error) {
	dir, err := os.MkdirTemp("", "networth-download-*")
	if err != nil {
		return "", utils.Permanent(fmt.Errorf("download dir: %w", err))
	}
	defer os.RemoveAll(dir)

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, time.Duration(f.cfg.FetchTimeoutSec)*time.Second)
	defer cancelTimeout()

	watcher := newDownloadWatcher()
	chromedp.ListenTarget(tabCtx, watcher.handle)

	if err := chromedp.Run(tabCtx, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(dir).
		WithEventsEnabled(true)); err != nil {
		return "", fmt.Errorf("set download behavior: %w", err)
	}

	resp, navErr := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if navErr == nil && resp != nil {
		if err := checkStatus(url, resp.Status); err != nil {
			return "", err
		}

		var text string
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return text, nil
	}

	// Chrome aborts the navigation (net::ERR_ABORTED) when the response
	// becomes a download.
	guid, err := watcher.wait(tabCtx, downloadGrace)
	if errors.Is(err, errNoDownload) {
		if navErr != nil {
			return "", fmt.Errorf("navigate: %w", navErr)
		}
		return "", fmt.Errorf("navigate: no response for %s", url)
	}
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, guid))
	if err != nil {
		return "", fmt.Errorf("read download: %w", err)
	}
	f.logger.Debug("[remote] %s arrived as a download", url)
	return string(data), nil
}

// checkStatus classifies an HTTP status code. Client errors are permanent.
func checkStatus(url string, status int64) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return utils.Permanent(fmt.Errorf("%s: HTTP %d: %w", url, status, storage.ErrSourceNotFound))
	case status >= 400 && status < 500:
		return utils.Permanent(fmt.Errorf("%s: HTTP %d", url, status))
	case status >= 500:
		return fmt.Errorf("%s: HTTP %d", url, status)
	}
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
