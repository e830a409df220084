package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/logger"
)

// Page is metadata scraped from a web page to prefill a card.
type Page struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"icon_url,omitempty"` // absolute
}

// FetchPage reads rawURL and extracts its title, meta description and icon.
// It returns nil when the page cannot be fetched or parsed.
func (c *Client) FetchPage(ctx context.Context, rawURL string) *Page {
	if !card.IsWebURL(rawURL) {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	page, err := c.fetchPage(ctx, rawURL)
	if err != nil {
		c.log.Debug("page fetch failed", logger.String("url", rawURL), logger.Error(err))
		return nil
	}
	return page
}

func (c *Client) fetchPage(ctx context.Context, rawURL string) (*Page, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	resp, err := c.send(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("not html: %s", ct)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	page := extractPage(doc, base)
	if page.Title == "" {
		return nil, fmt.Errorf("no title found")
	}
	return page, nil
}

// extractPage walks the document for <title>, meta description/og tags and icon links.
func extractPage(doc *html.Node, base *url.URL) *Page {
	var title, ogTitle, desc, ogDesc, icon string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = n.FirstChild.Data
				}
			case "meta":
				name := strings.ToLower(attr(n, "name") + attr(n, "property"))
				switch name {
				case "description":
					desc = attr(n, "content")
				case "og:description":
					ogDesc = attr(n, "content")
				case "og:title":
					ogTitle = attr(n, "content")
				}
			case "link":
				rel := strings.ToLower(attr(n, "rel"))
				if icon == "" && strings.Contains(rel, "icon") {
					icon = attr(n, "href")
				}
			case "body":
				// Metadata lives in <head>; stop before the content
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	page := &Page{
		Title:       collapse(firstNonEmpty(title, ogTitle)),
		Description: collapse(firstNonEmpty(desc, ogDesc)),
	}
	if icon != "" {
		if ref, err := url.Parse(strings.TrimSpace(icon)); err == nil {
			if abs := base.ResolveReference(ref); card.IsWebURL(abs.String()) {
				page.IconURL = abs.String()
			}
		}
	}
	return page
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
