package notify

import (
	"sync"
	"time"
)

// Outcome is how an action ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeInfo    Outcome = "info"
	OutcomeWarning Outcome = "warning"
)

// Actions published by the repositories.
const (
	ActionAdd       = "add"
	ActionEdit      = "edit"
	ActionDelete    = "delete"
	ActionArchive   = "archive"
	ActionUnarchive = "unarchive"
	ActionDuplicate = "duplicate"
	ActionImport    = "import"
	ActionExport    = "export"
	ActionStorage   = "storage"

	ActionTheme             = "theme"
	ActionCustomTheme       = "custom-theme"
	ActionView              = "view"
	ActionArchiveVisibility = "archive-visibility"
	ActionTitle             = "title"
	ActionSettingsImport    = "settings-import"
	ActionSettingsExport    = "settings-export"
	ActionSettingsReset     = "settings-reset"
)

// Event reports the outcome of a user-visible action.
type Event struct {
	Action  string
	Outcome Outcome
	// Message overrides the default text for the action; may be empty
	Message string
	Context map[string]any
	Time    time.Time
}

// Bus is a synchronous publish/subscribe channel for Events.
// Subscribers are called in subscription order on the publisher's goroutine.
type Bus struct {
	mu   sync.Mutex
	subs []subscription
	next int
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to every subscriber. A zero Time is set to now.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Emit is shorthand for publishing an event without context.
func (b *Bus) Emit(action string, outcome Outcome, message string) {
	b.Publish(Event{Action: action, Outcome: outcome, Message: message})
}
