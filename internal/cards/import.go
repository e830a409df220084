package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/notify"
)

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Count int `json:"count"`
}

// Import replaces the whole collection with the cards in doc, which must be
// a JSON array. Any malformed element rejects the import and leaves the
// collection untouched.
func (r *Repository) Import(ctx context.Context, doc []byte) (*ImportOutput, error) {
	out, err := r.importDoc(ctx, doc)
	if err != nil {
		return nil, r.fail(notify.ActionImport, err)
	}
	r.succeed(notify.ActionImport, map[string]any{"count": out.Count})
	return out, nil
}

// ImportFile validates path and imports its contents.
func (r *Repository) ImportFile(ctx context.Context, path string) (*ImportOutput, error) {
	if err := r.policy.ValidatePath(path, files.ModeRead, files.CardExtensions); err != nil {
		return nil, r.fail(notify.ActionImport, err)
	}
	data, err := files.ReadFile(path)
	if err != nil {
		return nil, r.fail(notify.ActionImport, err)
	}
	return r.Import(ctx, data)
}

func (r *Repository) importDoc(ctx context.Context, doc []byte) (*ImportOutput, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(doc, &elems); err != nil || elems == nil {
		return nil, errors.NewInvalidFormat("import document must be a JSON array of cards")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	next := make([]card.Card, 0, len(elems))
	ids := make(map[string]struct{}, len(elems))

	for i, raw := range elems {
		c, err := r.decodeImported(raw, now)
		if err != nil {
			return nil, errors.NewInvalidFormat(fmt.Sprintf("card %d: %s", i, err))
		}
		if _, dup := ids[c.ID]; dup {
			return nil, errors.NewInvalidFormat(fmt.Sprintf("card %d: duplicate id %q", i, c.ID))
		}
		ids[c.ID] = struct{}{}
		next = append(next, c)
	}

	if err := r.commit(ctx, next); err != nil {
		return nil, err
	}
	return &ImportOutput{Count: len(next)}, nil
}

// decodeImported decodes one element and fills what an older export may lack.
// Caller holds r.mu.
func (r *Repository) decodeImported(raw json.RawMessage, now time.Time) (card.Card, error) {
	var c card.Card
	if err := json.Unmarshal(raw, &c); err != nil {
		return card.Card{}, fmt.Errorf("not a card: %v", err)
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return card.Card{}, fmt.Errorf("title must not be empty")
	}
	c.Title = title

	u, err := card.ValidateURL("url", c.URL)
	if err != nil {
		return card.Card{}, err
	}
	c.URL = u

	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = r.newID()
	}

	c.Tags = card.CleanTags(c.Tags)

	if c.Icon.Type == "" {
		c.Icon = card.LetterIcon(c.Title, r.rng)
	} else {
		icon, err := r.normalizeIcon(c.Title, c.Icon)
		if err != nil {
			return card.Card{}, err
		}
		c.Icon = icon
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	return c, nil
}
