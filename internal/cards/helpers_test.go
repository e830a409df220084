package cards

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/notify"
	"github.com/hpungsan/shelf/internal/storage"
)

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }

// recorder collects bus events.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) handle(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notify.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// faultyStore wraps a Store and fails writes while failSet is true.
type faultyStore struct {
	storage.Store
	mu      sync.Mutex
	failSet bool
	failGet bool
}

var errDiskFull = stderrors.New("disk full")

func (f *faultyStore) setFailing(set, get bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet, f.failGet = set, get
}

func (f *faultyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.Store.Set(ctx, key, value)
}

func (f *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errDiskFull
	}
	return f.Store.Get(ctx, key)
}

type testEnv struct {
	repo  *Repository
	store *faultyStore
	rec   *recorder
	dir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, time.Now)
}

func newTestEnvWithClock(t *testing.T, now func() time.Time) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := &faultyStore{Store: storage.NewMemory()}
	bus := notify.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	repo := New(Options{
		Store: store,
		Bus:   bus,
		Files: files.Policy{ExportsDir: dir},
		Rand:  rand.New(rand.NewPCG(7, 11)),
		Now:   now,
	})
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return &testEnv{repo: repo, store: store, rec: rec, dir: dir}
}

func (e *testEnv) mustAdd(t *testing.T, in AddInput) string {
	t.Helper()
	c, err := e.repo.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", in.Title, err)
	}
	return c.ID
}

// stored returns the raw persisted collection.
func (e *testEnv) stored(t *testing.T) string {
	t.Helper()
	raw, ok, err := e.store.Store.Get(context.Background(), StorageKey)
	if err != nil || !ok {
		t.Fatalf("stored cards missing: ok=%v err=%v", ok, err)
	}
	return raw
}

// frozenClock always returns the same instant.
func frozenClock() func() time.Time {
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}
