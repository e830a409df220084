// Package lookup talks to the outside world on behalf of card creation:
// Wikipedia search, link and image reachability, and page metadata.
// Every call is best effort; failures come back as nil or false.
package lookup

import (
	"context"
	"net/http"
	"time"

	"github.com/hpungsan/shelf/internal/logger"
)

// Defaults
const (
	DefaultTimeout   = 5 * time.Second
	DefaultEndpoint  = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent = "shelf/1.0 (bookmark cards)"

	maxBodyBytes = 5 * 1024 * 1024
)

// Options configures a Client. Zero values use the defaults.
type Options struct {
	Endpoint   string // Wikipedia API endpoint
	UserAgent  string
	Timeout    time.Duration // per call
	HTTPClient *http.Client
	Log        logger.Logger
}

// Client performs lookups with a bounded per-call timeout.
type Client struct {
	http      *http.Client
	endpoint  string
	userAgent string
	timeout   time.Duration
	log       logger.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		http:      opts.HTTPClient,
		endpoint:  opts.Endpoint,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		log:       opts.Log,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// do sends req with the client's user agent.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.http.Do(req)
}

// withTimeout bounds ctx by the per-call timeout.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
