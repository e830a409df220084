package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hpungsan/shelf/internal/logger"
)

// Result is the best Wikipedia match for a search term.
type Result struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"url"`
}

type searchResponse struct {
	Query struct {
		Search []struct {
			PageID int64  `json:"pageid"`
			Title  string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type detailsResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			Extract   string `json:"extract"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns the top Wikipedia article for term with its intro extract
// and thumbnail. It returns nil when nothing matches or the call fails.
func (c *Client) Search(ctx context.Context, term string) *Result {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.search(ctx, term)
	if err != nil {
		c.log.Warn("wikipedia lookup failed", logger.String("term", term), logger.Error(err))
		return nil
	}
	return res
}

func (c *Client) search(ctx context.Context, term string) (*Result, error) {
	var found searchResponse
	err := c.getJSON(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {term},
		"srlimit":  {"1"},
		"format":   {"json"},
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(found.Query.Search) == 0 {
		return nil, nil
	}
	pageID := strconv.FormatInt(found.Query.Search[0].PageID, 10)

	var details detailsResponse
	err = c.getJSON(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageimages"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"pithumbsize": {"300"},
		"pageids":     {pageID},
		"format":      {"json"},
	}, &details)
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}

	page, ok := details.Query.Pages[pageID]
	if !ok {
		return nil, fmt.Errorf("page %s missing from details", pageID)
	}

	res := &Result{
		Title:   page.Title,
		Extract: page.Extract,
		URL:     c.articleURL(pageID),
	}
	if page.Thumbnail != nil {
		res.Thumbnail = page.Thumbnail.Source
	}
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v)
}

// articleURL links to a page by id on the endpoint's host.
func (c *Client) articleURL(pageID string) string {
	u, err := url.Parse(c.endpoint)
	if err != nil || u.Host == "" {
		return "https://en.wikipedia.org/?curid=" + pageID
	}
	return fmt.Sprintf("%s://%s/?curid=%s", u.Scheme, u.Host, pageID)
}
