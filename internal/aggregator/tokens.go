package aggregator

import (
	"context"
)

// TokenSource supplies the mints to aggregate.
type TokenSource interface {
	Tokens(ctx context.Context) ([]string, error)
}

// StaticTokens is a fixed token list, usually from config.
type StaticTokens []string

// Tokens implements TokenSource.
func (s StaticTokens) Tokens(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) ([]string, error)

// Tokens calls f(ctx).
func (f TokenSourceFunc) Tokens(ctx context.Context) ([]string, error) {
	return f(ctx)
}
