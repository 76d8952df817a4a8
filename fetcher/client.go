package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const DefaultUserAgent = "postershelf/1.0"

type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %s", e.URL, e.Status)
}

type Response struct {
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Bytes      []byte
}

func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CheckStatus returns a *StatusError for non-2xx responses.
func (r *Response) CheckStatus() error {
	if r.OK() {
		return nil
	}
	return &StatusError{URL: r.URL, StatusCode: r.StatusCode, Status: r.Status}
}

type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	// MaxInFlight bounds concurrent requests made through GetAsync.
	// Zero means unbounded.
	MaxInFlight int64
}

type Client struct {
	client    *http.Client
	userAgent string
	inFlight  *semaphore.Weighted
}

func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
	if opts.MaxInFlight > 0 {
		c.inFlight = semaphore.NewWeighted(opts.MaxInFlight)
	}
	return c
}

func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	logrus.WithFields(logrus.Fields{
		"url":    url,
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("fetched")

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header,
		Bytes:      body,
	}, nil
}

// GetAsync performs Get on its own goroutine and hands the outcome to done
// exactly once. It never blocks the caller, even when MaxInFlight is
// reached.
func (c *Client) GetAsync(ctx context.Context, url string, done func(*Response, error)) {
	go func() {
		if c.inFlight != nil {
			if err := c.inFlight.Acquire(ctx, 1); err != nil {
				done(nil, &TransportError{URL: url, Err: err})
				return
			}
			defer c.inFlight.Release(1)
		}
		done(c.Get(ctx, url))
	}()
}
