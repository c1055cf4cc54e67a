// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Combines multiple closers to ensure all resources are released.
type multiReadCloser struct {
	io.ReadCloser
	underlying io.Closer
}

// Implements io.Closer and ensures all resources are properly released.
func (r *multiReadCloser) Close() error {
	return errors.Join(
		r.ReadCloser.Close(),
		r.underlying.Close(),
	)
}

// Cache keeps downloaded documents on disk, gzip compressed, one file per
// URL.
type Cache struct {
	root string
}

// NewCache creates a cache rooted at dir. The directory is created on the
// first write.
func NewCache(dir string) *Cache {
	return &Cache{root: dir}
}

// pathFor maps a URL to its cache file.
func (c *Cache) pathFor(url string) string {
	sum := sha256.Sum256([]byte(url))

	return filepath.Join(c.root, hex.EncodeToString(sum[:12])+".gz")
}

// ModTime returns when url was stored, or ok=false when it isn't cached.
func (c *Cache) ModTime(url string) (time.Time, bool, error) {
	st, err := os.Stat(c.pathFor(url))
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, err
	}

	return st.ModTime(), true, nil
}

// Put stores content for url, compressed with gzip best compression. The
// previous copy is only replaced once the new one is complete.
func (c *Cache) Put(url string, content io.Reader) (err error) {
	if err := os.MkdirAll(c.root, 0o700); err != nil {
		return fmt.Errorf("setting up cache: %w", err)
	}

	f, err := os.CreateTemp(c.root, "partial-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	// a failed write leaves no partial file behind
	defer func() {
		if err != nil {
			_ = f.Close()
			err = errors.Join(err, os.Remove(f.Name()))
		}
	}()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}

	if _, err := io.Copy(gw, content); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	if err := gw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if err := os.Rename(f.Name(), c.pathFor(url)); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return nil
}

// Get returns the cached content of url.
func (c *Cache) Get(url string) (io.ReadCloser, error) {
	f, err := os.Open(c.pathFor(url))
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating gzip reader: %w", err), f.Close())
	}

	return &multiReadCloser{gr, f}, nil
}
