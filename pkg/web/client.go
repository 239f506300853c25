// Package web holds the HTTP plumbing shared by the scrapers: a cookie
// carrying client, per request redirect policy, and retries for requests
// that are safe to repeat.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// UserAgent is sent with every request, some sites refuse Go's default.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	retries = 5
)

// ErrStatus is returned when a response has a status we did not expect.
var ErrStatus = errors.New("unexpected status")

type followKey struct{}

// Follow marks requests made with ctx as allowed to follow redirects.
// Without it the first 3xx response is returned as is.
func Follow(ctx context.Context) context.Context {
	return context.WithValue(ctx, followKey{}, true)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        *url.URL
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Redirect reports a 3xx status.
func (r *Response) Redirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Location resolves the Location header against the request URL.
func (r *Response) Location() (string, error) {
	loc := r.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("%w: %d without Location header", ErrStatus, r.StatusCode)
	}
	u, err := r.URL.Parse(loc)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Client is a cookie keeping HTTP client.
type Client struct {
	http    *http.Client
	jar     *recordingJar
	retries uint64
	log     zerolog.Logger
}

type Option func(*Client)

// WithRetries sets how many times an idempotent request is retried.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout bounds each single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(opts ...Option) (*Client, error) {
	jar, err := newRecordingJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		jar:     jar,
		retries: retries,
		log:     zerolog.Nop(),
	}
	c.http = &http.Client{
		Jar:     jar,
		Timeout: time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if follow, _ := req.Context().Value(followKey{}).(bool); !follow {
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Jar exposes the cookie jar, for loading and saving sessions.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Issued lists the live cookies set on the client, by servers or through
// Jar, with the URLs they were set for.
func (c *Client) Issued() []IssuedCookie {
	return c.jar.Issued()
}

// ResetCookies throws away every cookie the client holds.
func (c *Client) ResetCookies() error {
	jar, err := newRecordingJar()
	if err != nil {
		return err
	}
	c.jar = jar
	c.http.Jar = jar
	return nil
}

// Get fetches uri, retrying with exponential backoff on network errors and
// 5xx responses.
func (c *Client) Get(ctx context.Context, uri string, header http.Header) (*Response, error) {
	var resp *Response

	op := func() error {
		r, err := c.do(ctx, http.MethodGet, uri, header, "")
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if r.StatusCode >= 500 {
			return fmt.Errorf("%w: got status code: %d", ErrStatus, r.StatusCode)
		}
		resp = r
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Str("url", uri).Dur("wait", wait).Msg("retrying request")
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// PostForm submits form once. Posts are never retried since the remote side
// may have acted on a request whose response we lost.
func (c *Client) PostForm(ctx context.Context, uri string, form url.Values, header http.Header) (*Response, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, http.MethodPost, uri, h, form.Encode())
}

func (c *Client) do(ctx context.Context, method, uri string, header http.Header, body string) (*Response, error) {
	var data io.Reader
	if body != "" {
		data = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, data)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.log.Debug().Str("method", method).Str("url", uri).Msg("request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", uri, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
		URL:        resp.Request.URL,
	}, nil
}
