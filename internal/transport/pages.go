package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/model"
	"github.com/pkg/errors"
)

var ErrNoBaseURL = errors.New("transport: base_url is not configured")

// HTTPPageSource reads review pages from a JSON endpoint: GET <base_url>?offset=N.
type HTTPPageSource struct {
	client    *http.Client
	base      *url.URL
	userAgent string
}

func NewHTTPPageSource(cfg *config.Transport, client *http.Client) (*HTTPPageSource, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base_url")
	}
	return &HTTPPageSource{client: client, base: base, userAgent: cfg.UserAgent}, nil
}

func (s *HTTPPageSource) Page(ctx context.Context, offset int) (*model.Page, error) {
	u := *s.base
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	data, err := get(ctx, s.client, s.userAgent, u.String())
	if err != nil {
		return nil, err
	}

	page := &model.Page{}
	if err = json.Unmarshal(data, page); err != nil {
		return nil, errors.Wrapf(err, "decode page at offset %d", offset)
	}
	return page, nil
}
