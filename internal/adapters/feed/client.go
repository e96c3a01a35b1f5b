// internal/adapters/feed/client.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"property_listings/internal/adapters/observability"
	"property_listings/internal/domain"
)

// Client fetches calendar feeds over plain GET. It never retries: a failed
// fetch is reported to the caller, who shows it as an upstream error.
type Client struct {
	hc       *http.Client
	rl       *rate.Limiter
	maxBytes int64
}

type Options struct {
	Timeout  time.Duration
	RPS      int
	MaxBytes int64
}

func New(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 5 << 20
	}
	return &Client{
		hc:       &http.Client{Timeout: o.Timeout},
		rl:       rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
		maxBytes: o.MaxBytes,
	}
}

var ErrTooLarge = errors.New("feed: body exceeds size limit")

// Fetch returns the raw feed body. Network failures, non-2xx statuses,
// oversized bodies and limiter waits that cannot finish before the deadline
// are wrapped in domain.ErrUpstream; caller cancellation is returned as the
// context error.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// the limiter refuses up front when the wait would outlast the deadline
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", "property-listings/1.0")

	host := hostOf(rawURL)
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("ical", host, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("url", redactURL(rawURL)).Msg("calendar fetch failed")
		return nil, fmt.Errorf("%w: fetch calendar: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("ical", host, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Str("url", redactURL(rawURL)).Msg("calendar fetch non-2xx")
		return nil, fmt.Errorf("%w: calendar feed returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	// read one byte past the cap so an oversized body is detectable
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read calendar: %v", domain.ErrUpstream, err)
	}
	if int64(len(b)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, ErrTooLarge)
	}
	log.Debug().Str("url", redactURL(rawURL)).Int("bytes", len(b)).Msg("calendar fetched")
	return b, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// redactURL keeps scheme and host only; feed URLs often carry secret tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ical://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
