package images

import (
	"errors"
	"fmt"
)

// Kind classifies why an image could not be produced.
type Kind int

const (
	KindInvalidKey Kind = iota + 1
	KindTransport
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindInvalidKey:
		return "invalid_key"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidKey = &Error{Kind: KindInvalidKey}
	ErrTransport  = &Error{Kind: KindTransport}
	ErrDecode     = &Error{Kind: KindDecode}

	ErrClosed       = errors.New("image provider is closed")
	ErrSourceTooBig = errors.New("source image exceeds pixel limit")

	errMissingScheme   = errors.New("locator has no scheme")
	errMissingLocation = errors.New("locator has neither host nor path")
)

// Error is returned by Provider.Load. Compare with errors.Is against ErrInvalidKey,
// ErrTransport or ErrDecode.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func newError(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("image %s failure", e.Kind)
	}
	return fmt.Sprintf("image %s failure for %q: %v", e.Kind, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}
