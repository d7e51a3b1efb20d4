// Package browser renders pages in headless Chrome for boards whose
// listings are built client side.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// Fetcher implements util.PageFetcher with chromedp. One browser is
// started lazily and shared by every FetchPage call until Close.
type Fetcher struct {
	UserAgent string
	Limiter   *util.HostLimiter
	Timeout   time.Duration
	// WaitSelector is awaited before the DOM is captured. Defaults to body.
	WaitSelector string

	mu          sync.Mutex
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

var _ util.PageFetcher = (*Fetcher)(nil)

func New(userAgent string, limiter *util.HostLimiter) *Fetcher {
	return &Fetcher{UserAgent: userAgent, Limiter: limiter, Timeout: 45 * time.Second}
}

func (f *Fetcher) browser() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browserCtx != nil {
		return f.browserCtx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	f.allocCancel, f.browserCtx, f.cancel = allocCancel, ctx, cancel
	return ctx
}

func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if err := f.Limiter.WaitURL(ctx, url); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browser())
	defer cancelTab()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// tie the tab to the caller's context
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	wait := f.WaitSelector
	if wait == "" {
		wait = "body"
	}

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(wait, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// Close shuts the browser down. The Fetcher can be reused afterwards.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
		f.allocCancel()
	}
	f.browserCtx, f.cancel, f.allocCancel = nil, nil, nil
	return nil
}
