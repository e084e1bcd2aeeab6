package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/job-insights/internal/circuitbreaker"
	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/retry"
	"github.com/job-insights/internal/types"
)

// DefaultMaxBodyBytes caps a downloaded export at 64 MiB
const DefaultMaxBodyBytes int64 = 64 << 20

// Fetcher downloads job exports over HTTP with retry. After repeated
// transient failures its circuit breaker rejects fetches until a cooldown passes.
type Fetcher struct {
	client       *http.Client
	retryConfig  *retry.RetryConfig
	breaker      *circuitbreaker.CircuitBreaker
	maxBodyBytes int64
}

// NewFetcher creates a fetcher whose individual requests time out after timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	config := retry.DefaultRetryConfig()
	config.ShouldRetry = apperrors.IsRetryable

	breakerConfig := circuitbreaker.DefaultConfig("export-fetch")
	breakerConfig.IsFailure = apperrors.IsRetryable

	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		retryConfig:  config,
		breaker:      circuitbreaker.NewCircuitBreaker(breakerConfig),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// WithCircuitBreaker replaces the breaker guarding downloads
func (f *Fetcher) WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) *Fetcher {
	f.breaker = cb
	return f
}

// BreakerStats reports the state of the download circuit breaker
func (f *Fetcher) BreakerStats() circuitbreaker.Stats {
	return f.breaker.Stats()
}

// WithRetryConfig overrides the backoff policy. ShouldRetry defaults to errors.IsRetryable.
func (f *Fetcher) WithRetryConfig(config *retry.RetryConfig) *Fetcher {
	if config.ShouldRetry == nil {
		config.ShouldRetry = apperrors.IsRetryable
	}
	f.retryConfig = config
	return f
}

// WithMaxBodyBytes overrides the download size limit
func (f *Fetcher) WithMaxBodyBytes(n int64) *Fetcher {
	f.maxBodyBytes = n
	return f
}

// Fetch downloads and parses the export at url.
// Network failures, 5xx and 429 responses are retried; other failures are returned at once.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]types.JobRecord, *ParseStats, error) {
	var body []byte
	err := f.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, f.retryConfig, func(ctx context.Context, attempt int) error {
			data, err := f.download(ctx, url)
			if err != nil {
				return err
			}
			body = data
			return nil
		})
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return nil, nil, apperrors.NewSourceError(url, 0, err)
	}
	if err != nil {
		if catErr := apperrors.Categorize(err); catErr.Code != "INTERNAL_ERROR" {
			return nil, nil, catErr
		}
		return nil, nil, apperrors.NewSourceError(url, 0, err)
	}

	return ParseCSV(bytes.NewReader(body))
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("url", err.Error())
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewSourceError(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewSourceError(url, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, apperrors.NewSourceError(url, 0, err)
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, apperrors.NewInvalidParameterError("url", fmt.Sprintf("export exceeds %d bytes", f.maxBodyBytes))
	}
	return data, nil
}
