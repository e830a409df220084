// Package cards owns the canonical card collection and mirrors every
// mutation to the key-value store.
package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/notify"
	"github.com/hpungsan/shelf/internal/storage"
)

// StorageKey holds the JSON array of cards.
const StorageKey = "cardManager_cards"

const corruptMessage = "Cards data was corrupted and has been reset"

// Options wires a Repository. Store is required; the rest have defaults.
type Options struct {
	Store storage.Store
	Bus   *notify.Bus
	Log   logger.Logger
	Files files.Policy

	// Rand picks letter-icon colours
	Rand *rand.Rand
	// Now is the clock; results are truncated to milliseconds in UTC
	Now func() time.Time
	// NewID generates card ids
	NewID func() string
}

// Repository is the in-memory card collection backed by a Store.
// Operations are serialized; events are published after the lock is released.
type Repository struct {
	mu    sync.Mutex
	cards []card.Card

	store  storage.Store
	bus    *notify.Bus
	log    logger.Logger
	policy files.Policy
	rng    *rand.Rand
	clock  func() time.Time
	newID  func() string
}

// New creates an empty repository. Call Load to read persisted cards.
func New(opts Options) *Repository {
	r := &Repository{
		cards:  []card.Card{},
		store:  opts.Store,
		bus:    opts.Bus,
		log:    opts.Log,
		policy: opts.Files,
		rng:    opts.Rand,
		clock:  opts.Now,
		newID:  opts.NewID,
	}
	if r.bus == nil {
		r.bus = notify.NewBus()
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.newID == nil {
		r.newID = func() string { return uuid.NewString() }
	}
	return r
}

// Load replaces the in-memory collection with the persisted one.
// A missing key starts an empty collection. Corrupt data is logged, reset to
// an empty array and reported on the bus; Load still returns nil so the
// caller stays usable. Stored elements that would fail an import are dropped
// and duplicate ids reissued; the repaired collection is written back and a
// warning reported. Only a failed read returns an error.
func (r *Repository) Load(ctx context.Context) error {
	res, err := r.load(ctx)
	if err != nil {
		r.log.Error("failed to read cards", logger.Error(err))
		r.bus.Emit(notify.ActionStorage, notify.OutcomeError, "")
		return err
	}
	switch {
	case res.corrupt:
		r.bus.Emit(notify.ActionStorage, notify.OutcomeError, corruptMessage)
	case res.dropped > 0 || res.reissued > 0:
		r.bus.Publish(notify.Event{
			Action:  notify.ActionStorage,
			Outcome: notify.OutcomeWarning,
			Message: fmt.Sprintf("Repaired stored cards: %d removed, %d given new ids", res.dropped, res.reissued),
			Context: map[string]any{"dropped": res.dropped, "reissued": res.reissued},
		})
	}
	return nil
}

type loadResult struct {
	corrupt  bool
	dropped  int
	reissued int
}

func (r *Repository) load(ctx context.Context) (loadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cards = []card.Card{}

	raw, ok, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		return loadResult{}, errors.NewStorage("get", StorageKey, err)
	}
	if !ok {
		if err := r.persist(ctx, r.cards); err != nil {
			r.log.Warn("failed to initialise cards key", logger.Error(err))
		}
		return loadResult{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil || elems == nil {
		r.log.Warn("cards data corrupted, resetting", logger.Int("bytes", len(raw)), logger.Error(err))
		if err := r.persist(ctx, r.cards); err != nil {
			r.log.Error("failed to reset corrupted cards", logger.Error(err))
		}
		return loadResult{corrupt: true}, nil
	}

	var res loadResult
	now := r.now()
	loaded := make([]card.Card, 0, len(elems))
	ids := make(map[string]struct{}, len(elems))
	for i, elem := range elems {
		c, err := r.decodeImported(elem, now)
		if err != nil {
			r.log.Warn("dropping invalid stored card", logger.Int("index", i), logger.Error(err))
			res.dropped++
			continue
		}
		if _, dup := ids[c.ID]; dup {
			old := c.ID
			c.ID = r.newID()
			r.log.Warn("reissuing duplicate card id", logger.Int("index", i), logger.String("id", old), logger.String("new_id", c.ID))
			res.reissued++
		}
		ids[c.ID] = struct{}{}
		loaded = append(loaded, c)
	}
	r.cards = loaded

	if res.dropped > 0 || res.reissued > 0 {
		if err := r.persist(ctx, r.cards); err != nil {
			r.log.Error("failed to write repaired cards", logger.Error(err))
		}
	}
	r.log.Debug("cards loaded", logger.Int("count", len(loaded)), logger.Int("dropped", res.dropped))
	return res, nil
}

// persist writes next as the whole collection. Caller holds r.mu.
func (r *Repository) persist(ctx context.Context, next []card.Card) error {
	if next == nil {
		next = []card.Card{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := r.store.Set(ctx, StorageKey, string(data)); err != nil {
		return errors.NewStorage("set", StorageKey, err)
	}
	return nil
}

// commit persists next and, only on success, makes it canonical. Caller holds r.mu.
func (r *Repository) commit(ctx context.Context, next []card.Card) error {
	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.cards = next
	return nil
}

// snapshot copies the collection. Caller holds r.mu.
func (r *Repository) snapshot() []card.Card {
	out := make([]card.Card, len(r.cards))
	for i, c := range r.cards {
		out[i] = c.Clone()
	}
	return out
}

// indexOf returns the position of id or -1. Caller holds r.mu.
func (r *Repository) indexOf(id string) int {
	for i, c := range r.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// now returns the clock in UTC at millisecond resolution.
func (r *Repository) now() time.Time {
	return r.clock().UTC().Truncate(time.Millisecond)
}

// touch returns a timestamp strictly after prev.
func (r *Repository) touch(prev time.Time) time.Time {
	ts := r.now()
	if !ts.After(prev) {
		ts = prev.Add(time.Millisecond)
	}
	return ts
}

// fail reports err on the bus and returns it.
func (r *Repository) fail(action string, err error) error {
	if errors.Is(err, errors.ErrStorage) || errors.Is(err, errors.ErrInternal) {
		r.log.Error("card operation failed", logger.String("action", action), logger.Error(err))
	} else {
		r.log.Debug("card operation rejected", logger.String("action", action), logger.Error(err))
	}
	r.bus.Publish(notify.Event{
		Action:  action,
		Outcome: notify.OutcomeError,
		Context: map[string]any{"error": err.Error()},
	})
	return err
}

func (r *Repository) succeed(action string, ctx map[string]any) {
	r.bus.Publish(notify.Event{
		Action:  action,
		Outcome: notify.OutcomeSuccess,
		Context: ctx,
	})
}
