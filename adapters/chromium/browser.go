// Package chromium shares one headless Chromium process between the
// adapters that drive a browser tab (PDF printing, mermaid layout).
package chromium

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser lazily starts a headless Chromium and hands out tabs.
type Browser struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowser returns a headless browser using path, or the binary found by
// LookupBinary when path is empty.
func NewBrowser(path string, args ...string) *Browser {
	if path == "" {
		path = LookupBinary()
	}
	return &Browser{BrowserPath: path, Headless: true, Args: args}
}

// LookupBinary resolves CHROME_BIN or a chromium executable on PATH.
func LookupBinary() string {
	if path := strings.TrimSpace(os.Getenv("CHROME_BIN")); path != "" {
		return path
	}
	for _, candidate := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}

// Tab opens a new tab bound to ctx. Cancelling ctx or calling the returned
// cancel function closes the tab; Timeout bounds the whole tab lifetime.
func (b *Browser) Tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if b == nil {
		return nil, nil, errors.New("chromium browser is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := b.ensure(); err != nil {
		return nil, nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	execCtx, cancelReq := context.WithCancel(tabCtx)
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-execCtx.Done():
		}
	}()

	cancels := []context.CancelFunc{cancelReq, cancelTab}
	if b.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, b.Timeout)
		cancels = append([]context.CancelFunc{cancelTimeout}, cancels...)
	}
	return execCtx, func() {
		for _, cancel := range cancels {
			cancel()
		}
	}, nil
}

// Close releases Chromium resources if they have been initialized.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

func (b *Browser) ensure() error {
	b.initOnce.Do(func() {
		options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if b.BrowserPath != "" {
			options = append(options, chromedp.ExecPath(b.BrowserPath))
		}
		options = append(options, chromedp.Flag("headless", b.Headless))
		options = append(options, AllocatorOptions(b.Args)...)

		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)
	})
	if b.allocCtx == nil || b.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

// AllocatorOptions turns "--flag" and "--flag=value" arguments into
// allocator flags.
func AllocatorOptions(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
