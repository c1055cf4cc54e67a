// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mapaudit/mapaudit/utils/htmlutils"
	"github.com/mapaudit/mapaudit/utils/httputils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrStatus is returned for non successful HTTP responses.
var ErrStatus = errors.New("unexpected status")

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	// CacheDir is where downloaded documents are kept, no caching when empty
	CacheDir string

	// MaxAge is how long a cached document is used, forever when zero
	MaxAge time.Duration

	// Offline serves from the cache only
	Offline bool

	// RequestsPerSecond limits the download rate, 1 when zero
	RequestsPerSecond float64

	// MaxRetries for server errors and rate limited responses, 3 when zero
	MaxRetries int

	// Client options for the underlying http.Client
	Client httputils.ClientOptions
}

// Fetcher downloads source documents, politely.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cache   *Cache
	options FetcherOptions
}

// NewFetcher creates a fetcher.
func NewFetcher(options FetcherOptions) (*Fetcher, error) {
	client, err := httputils.NewClient(options.Client)
	if err != nil {
		return nil, err
	}

	if options.RequestsPerSecond <= 0 {
		options.RequestsPerSecond = 1
	}

	if options.MaxRetries <= 0 {
		options.MaxRetries = 3
	}

	f := &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1),
		options: options,
	}

	if options.CacheDir != "" {
		f.cache = NewCache(options.CacheDir)
	}

	return f, nil
}

// Fetch returns the document at url, from the cache when it holds a fresh
// enough copy. file:// URLs are read straight from disk.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, fileScheme); ok {
		return readLocal(path)
	}

	if f.cache != nil {
		modTime, ok, err := f.cache.ModTime(url)
		if err != nil {
			return nil, err
		}

		fresh := ok && (f.options.MaxAge == 0 || time.Since(modTime) < f.options.MaxAge)
		if fresh || (ok && f.options.Offline) {
			zap.L().Debug("serving from cache", zap.String("url", url), zap.Time("stored", modTime))

			return f.cached(url)
		}
	}

	if f.options.Offline {
		return nil, fmt.Errorf("%s isn't cached and downloads are disabled", url)
	}

	return f.Refresh(ctx, url)
}

func (f *Fetcher) cached(url string) ([]byte, error) {
	r, err := f.cache.Get(url)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)

	return data, errors.Join(err, r.Close())
}

// Refresh downloads url, bypassing and then updating the cache.
func (f *Fetcher) Refresh(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, fileScheme); ok {
		return readLocal(path)
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Put(url, bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := range f.options.MaxRetries {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(1<<attempt)*250*time.Millisecond); err != nil {
				return nil, err
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		data, retry, err := f.get(ctx, url)
		if err == nil {
			zap.L().Info("downloaded", zap.String("url", url), zap.Int("bytes", len(data)))

			return data, nil
		}

		if !retry {
			return nil, err
		}

		lastErr = err

		zap.L().Warn("download failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("downloading %s: %w", url, lastErr)
}

// get issues one request. retry reports whether the failure is transient.
func (f *Fetcher) get(ctx context.Context, url string) (data []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}

	defer func() {
		err = errors.Join(err, resp.Body.Close())
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, url)
	}

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, false, err
	}

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, true, fmt.Errorf("reading %s: %w", url, err)
	}

	return data, false, nil
}

const fileScheme = "file://"

func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the configuration
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
