package images

import "context"

//go:generate mockgen -package=mock -source=fetcher.go -destination=mock/fetcher.go

// Fetcher returns the raw bytes behind a locator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
