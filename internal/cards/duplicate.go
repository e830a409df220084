package cards

import (
	"context"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
)

// CopySuffix is appended to the title of a duplicated card.
const CopySuffix = " (Copy)"

// Duplicate appends a copy of the card with id. The copy gets a new id,
// fresh timestamps, the " (Copy)" title suffix and is never archived.
func (r *Repository) Duplicate(ctx context.Context, id string) (*card.Card, error) {
	c, err := r.duplicate(ctx, id)
	if err != nil {
		return nil, r.fail(notify.ActionDuplicate, err)
	}
	r.succeed(notify.ActionDuplicate, map[string]any{"id": c.ID, "source_id": id})
	return c, nil
}

func (r *Repository) duplicate(ctx context.Context, id string) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, errors.NewNotFound(id)
	}

	c := r.cards[idx].Clone()
	now := r.now()
	c.ID = r.newID()
	c.Title += CopySuffix
	c.IsArchived = false
	c.CreatedAt = now
	c.UpdatedAt = now

	next := append(r.snapshot(), c)
	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	out := c.Clone()
	return &out, nil
}
