package feed

import "github.com/pkg/errors"

var (
	// ErrAlreadyInProgress rejects a load while another one is in flight. Nothing is queued.
	ErrAlreadyInProgress = errors.New("page load already in progress")
	// ErrExhausted is returned once the source reported that every item was delivered.
	ErrExhausted = errors.New("feed is exhausted")
	ErrClosed    = errors.New("feed is closed")

	errEmptyPage = errors.New("page source returned no page")
)
