// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages: bounded
// retries on HTTP 429 and request pacing for rate-limited public APIs.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) after waiting backoff. At most maxRetries retries are made;
// maxRetries <= 0 disables retrying. Each retry waits the same fixed
// backoff, so the caller bounds the total wait.
//
// On each retried 429 the response body is drained and closed before
// sleeping. If the context is cancelled during a backoff wait the function
// returns ctx.Err(). After exhausting retries the last 429 response is
// returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, backoff time.Duration, maxRetries int, log *zap.Logger) (*http.Response, error) {
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Warn("rate limited, retrying",
			zap.String("url", req.URL.String()),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
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

// Pacer keeps at least one interval between the end of a request and the
// start of the next, regardless of how the request ended. The first request
// proceeds immediately.
type Pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewPacer returns a Pacer for interval. A non-positive interval disables
// pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{interval: interval, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may start. It does not take the slot;
// Done does.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	missing := 1 - p.limiter.TokensAt(time.Now())
	if missing <= 0 {
		return ctx.Err()
	}
	return Sleep(ctx, time.Duration(missing*float64(p.interval)))
}

// Done marks the end of a request. The next Wait is measured from here.
func (p *Pacer) Done() {
	if p.limiter == nil {
		return
	}
	p.limiter.ReserveN(time.Now(), 1)
}
