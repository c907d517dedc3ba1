package feed

import (
	"context"

	"github.com/Borislavv/go-ash-feed/model"
)

//go:generate mockgen -package=mock -source=source.go -destination=mock/page_source.go

// PageSource returns the reviews starting at offset together with the authoritative total.
// Pages may be cumulative: Items can repeat records the caller already holds.
type PageSource interface {
	Page(ctx context.Context, offset int) (*model.Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, offset int) (*model.Page, error)

func (f PageSourceFunc) Page(ctx context.Context, offset int) (*model.Page, error) {
	return f(ctx, offset)
}
