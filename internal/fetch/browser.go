package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// MinContentLength is the shortest extracted text accepted from a plain HTTP
// fetch. Shorter pages are assumed to render client side.
const MinContentLength = 500

// ShouldUseBrowser reports whether text is too short to be the posting.
func ShouldUseBrowser(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// RenderFunc returns the HTML of a page after its scripts have run.
type RenderFunc func(ctx context.Context, url string) (string, error)

// Browser returns a RenderFunc backed by a headless Chrome. Chrome or Chromium
// must be installed. Each call starts a fresh browser.
func Browser(timeout time.Duration, log zerolog.Logger) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		log.Debug().Str("url", url).Msg("rendering page in headless browser")

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
			append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(DefaultUserAgent),
			)...,
		)
		defer cancelAlloc()

		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
		defer cancelBrowser()

		browserCtx, cancel := context.WithTimeout(browserCtx, timeout)
		defer cancel()

		var html string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body"),
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html),
		)
		if err != nil {
			return "", fmt.Errorf("browser rendering failed: %w", err)
		}

		log.Debug().Str("url", url).Int("bytes", len(html)).Msg("page rendered")
		return html, nil
	}
}
