package app

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/logger"
)

// PrefillOptions selects which lookups fill empty AddInput fields.
type PrefillOptions struct {
	FromPage      bool // scrape in.URL for title, description and icon
	FromWikipedia bool // search Wikipedia by title
	VerifyIcon    bool // drop an IconURL that does not serve an image
}

// PrefillResult reports which lookups contributed.
type PrefillResult struct {
	Page        bool `json:"page,omitempty"`
	Wikipedia   bool `json:"wikipedia,omitempty"`
	IconDropped bool `json:"icon_dropped,omitempty"`
}

// Prefill completes in from the lookup collaborators. Fields the caller set
// are never overwritten. Lookup failures leave in unchanged.
func (a *App) Prefill(ctx context.Context, in *cards.AddInput, opts PrefillOptions) PrefillResult {
	var res PrefillResult
	explicitIcon := strings.TrimSpace(in.IconURL) != "" || in.IconFile != "" || in.Icon != nil

	if opts.FromPage && strings.TrimSpace(in.URL) != "" {
		if page := a.Lookup.FetchPage(ctx, in.URL); page != nil {
			res.Page = true
			setIfEmpty(&in.Title, page.Title)
			setIfEmpty(&in.Description, page.Description)
			if !explicitIcon && in.IconURL == "" && page.IconURL != "" && a.Lookup.CheckImage(ctx, page.IconURL) {
				in.IconURL = page.IconURL
			}
		}
	}

	if opts.FromWikipedia && strings.TrimSpace(in.Title) != "" {
		if found := a.Lookup.Search(ctx, in.Title); found != nil {
			res.Wikipedia = true
			setIfEmpty(&in.Description, found.Extract)
			setIfEmpty(&in.URL, found.URL)
			if !explicitIcon && in.IconURL == "" && found.Thumbnail != "" && a.Lookup.CheckImage(ctx, found.Thumbnail) {
				in.IconURL = found.Thumbnail
			}
		}
	}

	if opts.VerifyIcon && explicitIcon && strings.TrimSpace(in.IconURL) != "" && !a.Lookup.CheckImage(ctx, in.IconURL) {
		a.Log.Warn("icon URL is not a reachable image, using letter icon", logger.String("url", in.IconURL))
		in.IconURL = ""
		res.IconDropped = true
	}
	return res
}

func setIfEmpty(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}
