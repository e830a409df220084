package cards

import (
	"context"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
)

// Archive sets the archived flag of the card with id.
func (r *Repository) Archive(ctx context.Context, id string, archived bool) (*card.Card, error) {
	action := notify.ActionArchive
	if !archived {
		action = notify.ActionUnarchive
	}

	c, err := r.archive(ctx, id, archived)
	if err != nil {
		return nil, r.fail(action, err)
	}
	r.succeed(action, map[string]any{"id": c.ID})
	return c, nil
}

func (r *Repository) archive(ctx context.Context, id string, archived bool) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, errors.NewNotFound(id)
	}
	next := r.snapshot()
	next[idx].IsArchived = archived
	next[idx].UpdatedAt = r.touch(next[idx].UpdatedAt)

	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	out := next[idx].Clone()
	return &out, nil
}
