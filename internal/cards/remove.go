package cards

import (
	"context"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
)

// Remove deletes the card with id. A missing id leaves the collection as is
// and returns NOT_FOUND.
func (r *Repository) Remove(ctx context.Context, id string) error {
	if err := r.remove(ctx, id); err != nil {
		return r.fail(notify.ActionDelete, err)
	}
	r.succeed(notify.ActionDelete, map[string]any{"id": id})
	return nil
}

func (r *Repository) remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(id) < 0 {
		return errors.NewNotFound(id)
	}

	next := make([]card.Card, 0, len(r.cards)-1)
	for _, c := range r.cards {
		if c.ID != id {
			next = append(next, c.Clone())
		}
	}
	return r.commit(ctx, next)
}
