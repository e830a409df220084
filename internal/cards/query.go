package cards

import (
	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
)

// Counts summarises the collection.
type Counts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Archived int `json:"archived"`
}

// List returns a copy of every card in insertion order.
func (r *Repository) List() []card.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Get returns the card with id.
func (r *Repository) Get(id string) (*card.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, errors.NewNotFound(id)
	}
	c := r.cards[idx].Clone()
	return &c, nil
}

// AllTags returns the distinct tags across all cards in first-seen order.
func (r *Repository) AllTags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := []string{}
	seen := make(map[string]struct{})
	for _, c := range r.cards {
		for _, t := range c.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// Filter returns the cards matching f in insertion order.
func (r *Repository) Filter(f card.Filter) []card.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return f.Apply(r.snapshot())
}

// Counts returns how many cards are active and archived.
func (r *Repository) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Counts
	for _, c := range r.cards {
		if c.IsArchived {
			out.Archived++
		} else {
			out.Active++
		}
	}
	out.Total = len(r.cards)
	return out
}
