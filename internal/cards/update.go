package cards

import (
	"context"
	"strings"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
)

// UpdateInput contains parameters for the Update operation.
// Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	URL         *string // "" clears the URL

	Tags    *[]string
	TagText *string

	// IconURL set to "" switches back to a letter icon for the (new) title
	IconURL  *string
	IconFile *string // local image, wins over Icon
	Icon     *card.Icon

	ShowIcon *bool
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.URL == nil &&
		in.Tags == nil && in.TagText == nil && in.IconURL == nil &&
		in.IconFile == nil && in.Icon == nil && in.ShowIcon == nil
}

// Update merges in into the card with id and persists the collection.
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*card.Card, error) {
	c, err := r.update(ctx, id, in)
	if err != nil {
		return nil, r.fail(notify.ActionEdit, err)
	}
	r.succeed(notify.ActionEdit, map[string]any{"id": c.ID})
	return c, nil
}

func (r *Repository) update(ctx context.Context, id string, in UpdateInput) (*card.Card, error) {
	if in.empty() {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}
	if in.IconFile != nil {
		icon, err := r.iconFromFile(*in.IconFile)
		if err != nil {
			return nil, err
		}
		in.Icon = &icon
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, errors.NewNotFound(id)
	}
	next := r.snapshot()
	c := next[idx]

	if in.Title != nil {
		title, err := card.ValidateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		c.Title = title
	}

	if in.Description != nil {
		c.Description = *in.Description
	}

	if in.URL != nil {
		u, err := card.ValidateURL("url", *in.URL)
		if err != nil {
			return nil, err
		}
		c.URL = u
	}

	switch {
	case in.Tags != nil:
		c.Tags = card.CleanTags(*in.Tags)
	case in.TagText != nil:
		c.Tags = card.ParseTags(*in.TagText)
	}

	switch {
	case in.IconURL != nil && strings.TrimSpace(*in.IconURL) != "":
		u, err := card.ValidateURL("icon_url", *in.IconURL)
		if err != nil {
			return nil, err
		}
		c.Icon = card.ImageIcon(u)
	case in.IconURL != nil:
		c.Icon = card.LetterIcon(c.Title, r.rng)
	case in.Icon != nil:
		icon, err := r.normalizeIcon(c.Title, *in.Icon)
		if err != nil {
			return nil, err
		}
		c.Icon = icon
	case c.Icon.Type == "":
		c.Icon = card.LetterIcon(c.Title, r.rng)
	}

	if in.ShowIcon != nil {
		c.ShowIcon = *in.ShowIcon
	}

	c.UpdatedAt = r.touch(c.UpdatedAt)
	next[idx] = c

	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	out := c.Clone()
	return &out, nil
}
