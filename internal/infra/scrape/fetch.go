package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"kalitools/internal/domain"
)

const maxPageBytes = 2 << 20

// RetryPolicy is a bounded retry-with-backoff schedule. It is plain
// configuration: the fetch loop consumes it, nothing else.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Backoff returns the delay before the given retry attempt (1-based),
// doubling from BaseDelay and capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	BaseURL   string
	UserAgent string
	// MinDelay is the enforced minimum gap between consecutive requests.
	MinDelay time.Duration
	Timeout  time.Duration
	Retry    RetryPolicy
	Client   *http.Client
}

// Fetcher retrieves pages from the remote metadata source, enforcing a
// minimum inter-request delay and a bounded retry policy. Requests are
// sequential; the delay keeps failure attribution per-tool simple and the
// remote source unbothered.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	minDelay  time.Duration
	retry     RetryPolicy
	logger    *zap.Logger

	lastRequest time.Time
}

func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = domain.DefaultRetryAttempts
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = domain.DefaultRetryBaseMillis * time.Millisecond
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = domain.DefaultRetryMaxMillis * time.Millisecond
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: userAgent,
		minDelay:  cfg.MinDelay,
		retry:     retry,
		logger:    logger.Named("fetch"),
	}
}

// Get fetches one path relative to the base URL, retrying transient
// failures per the retry policy. Non-retryable HTTP statuses (4xx) fail
// immediately.
func (f *Fetcher) Get(ctx context.Context, path string) ([]byte, error) {
	url := f.baseURL + path
	var lastErr error
	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, f.retry.Backoff(attempt-1)); err != nil {
				return nil, domain.E(domain.CodeCanceled, "scrape.fetch", "", err)
			}
		}
		if err := f.throttle(ctx); err != nil {
			return nil, domain.E(domain.CodeCanceled, "scrape.fetch", "", err)
		}

		body, retryable, err := f.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		f.logger.Debug("fetch retry",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	if ctx.Err() != nil {
		return nil, domain.E(domain.CodeCanceled, "scrape.fetch", "", ctx.Err())
	}
	return nil, domain.E(domain.CodeFetch, "scrape.fetch", "get "+url, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("HTTP %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// throttle blocks until the minimum inter-request delay has elapsed since
// the previous request, honoring cancellation.
func (f *Fetcher) throttle(ctx context.Context) error {
	if f.minDelay <= 0 {
		return nil
	}
	if !f.lastRequest.IsZero() {
		if wait := f.minDelay - time.Since(f.lastRequest); wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
		}
	}
	f.lastRequest = time.Now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
