// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider supplies the places of one source.
type Provider interface {
	Places(ctx context.Context) ([]*Place, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) ([]*Place, error)

// Places implements Provider.
func (fn ProviderFunc) Places(ctx context.Context) ([]*Place, error) {
	return fn(ctx)
}

// Static serves a fixed list.
func Static(places ...*Place) Provider {
	return ProviderFunc(func(context.Context) ([]*Place, error) {
		return places, nil
	})
}

type documentProvider struct {
	ref     *Reference
	fetcher *Fetcher
}

// NewProvider returns a provider reading ref through fetcher. References
// with a file:// URL are read from disk.
func NewProvider(ref *Reference, fetcher *Fetcher) Provider {
	return &documentProvider{ref: ref, fetcher: fetcher}
}

func (p *documentProvider) document(ctx context.Context) ([]byte, error) {
	if path, ok := strings.CutPrefix(p.ref.URL, fileScheme); ok {
		return readLocal(path)
	}

	if p.fetcher == nil {
		return nil, fmt.Errorf("source %q needs a fetcher", p.ref.Name)
	}

	return p.fetcher.Fetch(ctx, p.ref.URL)
}

// Places implements Provider.
func (p *documentProvider) Places(ctx context.Context) ([]*Place, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", p.ref.Name, err)
	}

	places, err := Decode(p.ref, doc)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.ref.Name, err)
	}

	zap.L().Debug("places loaded",
		zap.String("source", p.ref.Name),
		zap.Int("places", len(places)),
	)

	return places, nil
}
