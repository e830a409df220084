package lookup

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/logger"
)

// CheckImage reports whether url serves an image: a 2xx response with an
// image/* content type within the timeout.
func (c *Client) CheckImage(ctx context.Context, url string) bool {
	if !card.IsWebURL(url) {
		return false
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodGet, url)
	if err != nil {
		c.log.Debug("image check failed", logger.String("url", url), logger.Error(err))
		return false
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "image/")
}

// CheckWebsite reports whether url answers at all. HEAD is tried first and
// GET used when the server rejects HEAD. Any status below 500 counts.
func (c *Client) CheckWebsite(ctx context.Context, url string) bool {
	if !card.IsWebURL(url) {
		return false
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.send(ctx, http.MethodHead, url)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		drain(resp)
		resp, err = c.send(ctx, http.MethodGet, url)
	}
	if err != nil {
		c.log.Debug("website check failed", logger.String("url", url), logger.Error(err))
		return false
	}
	defer drain(resp)
	return resp.StatusCode < 500
}

func (c *Client) send(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// drain discards a little of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}
