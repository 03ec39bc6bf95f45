package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a fetched posting is reused.
const DefaultCacheTTL = 24 * time.Hour

// ErrNoContent is returned when a page yields no posting text.
var ErrNoContent = errors.New("no job description found on the page")

// Posting is a job posting reduced to what the cover letter generator needs.
type Posting struct {
	URL         string    `json:"url"`
	Platform    Platform  `json:"platform"`
	Title       string    `json:"title,omitempty"`
	Company     string    `json:"company,omitempty"`
	Description string    `json:"description"`
	Rendered    bool      `json:"rendered"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Fetcher fetches job postings, optionally caching them in a key-value store.
type Fetcher struct {
	opts   *Options
	render RenderFunc
	cache  storage.KV
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithOptions sets the HTTP options.
func WithOptions(opts *Options) FetcherOption {
	return func(f *Fetcher) { f.opts = opts }
}

// WithRenderer enables the browser fallback for pages that render client side.
func WithRenderer(render RenderFunc) FetcherOption {
	return func(f *Fetcher) { f.render = render }
}

// WithCache stores postings in kv for ttl; a ttl <= 0 uses DefaultCacheTTL.
func WithCache(kv storage.KV, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = kv
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// NewFetcher returns a Fetcher. Without options it uses plain HTTP only and no cache.
func NewFetcher(log zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		opts: DefaultOptions(),
		ttl:  DefaultCacheTTL,
		now:  time.Now,
		log:  log.With().Str("component", "fetch").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchJob returns the posting at rawURL. The page is fetched over HTTP; when
// the extracted text is too short, or the board is known to render client
// side, and a renderer is configured, the page is rendered in a browser.
func (f *Fetcher) FetchJob(ctx context.Context, rawURL string) (*Posting, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if p, ok := f.cached(ctx, rawURL); ok {
		return p, nil
	}

	platform := DetectPlatform(rawURL)
	content := ContentSelectors(platform)
	noiseSel := NoiseSelectors(platform)

	var (
		html string
		text string
	)
	page, err := Get(ctx, rawURL, f.opts)
	if err == nil {
		html = page.HTML
		text, err = ExtractText(html, content, noiseSel...)
	}

	rendered := false
	if f.render != nil && (err != nil || ShouldUseBrowser(text) || RendersClientSide(platform)) {
		if err != nil {
			f.log.Debug().Err(err).Str("url", rawURL).Msg("HTTP fetch failed, trying browser")
		}
		rhtml, rerr := f.render(ctx, rawURL)
		if rerr == nil {
			if rtext, xerr := ExtractText(rhtml, content, noiseSel...); xerr == nil && len(rtext) >= len(text) {
				html, text, rendered, err = rhtml, rtext, true, nil
			}
		} else if err == nil {
			f.log.Warn().Err(rerr).Str("url", rawURL).Msg("browser rendering failed, using HTTP content")
		} else {
			err = errors.Join(err, rerr)
		}
	}
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, &Error{URL: rawURL, Message: "empty page", Cause: ErrNoContent}
	}

	meta := ExtractMeta(html)
	p := &Posting{
		URL:         rawURL,
		Platform:    platform,
		Title:       meta.Title,
		Company:     meta.Company,
		Description: text,
		Rendered:    rendered,
		FetchedAt:   f.now(),
	}
	f.store(ctx, p)
	f.log.Info().Str("url", rawURL).Str("platform", string(platform)).Bool("rendered", rendered).Int("chars", len(text)).Msg("job posting fetched")
	return p, nil
}

// Invalidate drops a cached posting.
func (f *Fetcher) Invalidate(ctx context.Context, rawURL string) error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Delete(ctx, cacheKey(rawURL))
}

func (f *Fetcher) cached(ctx context.Context, rawURL string) (*Posting, bool) {
	if f.cache == nil {
		return nil, false
	}
	data, err := f.cache.Get(ctx, cacheKey(rawURL))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			f.log.Warn().Err(err).Msg("job posting cache read failed")
		}
		return nil, false
	}
	var p Posting
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, false
	}
	if f.now().Sub(p.FetchedAt) > f.ttl {
		return nil, false
	}
	f.log.Debug().Str("url", rawURL).Msg("job posting served from cache")
	return &p, true
}

func (f *Fetcher) store(ctx context.Context, p *Posting) {
	if f.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, cacheKey(p.URL), string(data)); err != nil {
		f.log.Warn().Err(err).Msg("job posting cache write failed")
	}
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "job-posting:" + hex.EncodeToString(sum[:])
}
