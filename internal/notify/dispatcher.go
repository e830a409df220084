// Package notify shows short-lived user notifications (toasts) and carries
// action outcome events from the repositories to them.
package notify

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/shelf/internal/logger"
)

// Defaults
const (
	DefaultToastDuration = 3 * time.Second
	DefaultMaxToasts     = 5
)

// Severity is the visual class of a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Toast is an active notification.
type Toast struct {
	ID       string        `json:"id"`
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Duration time.Duration `json:"duration"` // 0 = sticky
	// CreatedAt is when the toast was first shown; dedup hits do not move it
	CreatedAt time.Time `json:"created_at"`
}

// Options configures a Dispatcher. Zero values use the package defaults.
type Options struct {
	DefaultDuration time.Duration
	MaxToasts       int
	Log             logger.Logger
}

type entry struct {
	toast Toast
	timer *time.Timer
	gen   uint64 // bumped on every reschedule; stale timer callbacks compare it
}

// Dispatcher holds the ordered list of active toasts.
// Safe for concurrent use; auto-dismiss timers fire on their own goroutines.
type Dispatcher struct {
	mu       sync.Mutex
	toasts   []*entry          // oldest first
	byKey    map[string]*entry // severity:message -> entry
	entropy  *ulid.MonotonicEntropy
	duration time.Duration
	max      int
	log      logger.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		byKey:    make(map[string]*entry),
		entropy:  ulid.Monotonic(rand.Reader, 0),
		duration: opts.DefaultDuration,
		max:      opts.MaxToasts,
		log:      opts.Log,
	}
	if d.duration <= 0 {
		d.duration = DefaultToastDuration
	}
	if d.max <= 0 {
		d.max = DefaultMaxToasts
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	return d
}

// DefaultDuration is the auto-dismiss delay used by the convenience methods.
func (d *Dispatcher) DefaultDuration() time.Duration { return d.duration }

func dedupKey(sev Severity, message string) string {
	return string(sev) + ":" + message
}

// Publish shows a toast and returns its id. If an identical (severity, message)
// toast is already active its dismiss timer is restarted and its id returned.
// duration <= 0 makes the toast sticky.
func (d *Dispatcher) Publish(message string, sev Severity, duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := dedupKey(sev, message)
	if e, ok := d.byKey[key]; ok {
		e.toast.Duration = duration
		d.schedule(e)
		return e.toast.ID
	}

	now := time.Now()
	e := &entry{toast: Toast{
		ID:        ulid.MustNew(ulid.Timestamp(now), d.entropy).String(),
		Message:   message,
		Severity:  sev,
		Duration:  duration,
		CreatedAt: now.UTC(),
	}}
	d.toasts = append(d.toasts, e)
	d.byKey[key] = e
	d.schedule(e)

	for len(d.toasts) > d.max {
		oldest := d.toasts[0]
		d.log.Debug("evicting toast", logger.String("id", oldest.toast.ID))
		d.removeLocked(oldest)
	}

	return e.toast.ID
}

// schedule (re)arms e's dismiss timer. Caller holds d.mu.
func (d *Dispatcher) schedule(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	if e.toast.Duration <= 0 {
		return
	}
	gen := e.gen
	e.timer = time.AfterFunc(e.toast.Duration, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if e.gen != gen || d.byKey[dedupKey(e.toast.Severity, e.toast.Message)] != e {
			return
		}
		d.removeLocked(e)
	})
}

// removeLocked drops e from the list and dedup map. Caller holds d.mu.
func (d *Dispatcher) removeLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	key := dedupKey(e.toast.Severity, e.toast.Message)
	if d.byKey[key] == e {
		delete(d.byKey, key)
	}
	for i, t := range d.toasts {
		if t == e {
			d.toasts = append(d.toasts[:i], d.toasts[i+1:]...)
			break
		}
	}
}

// Dismiss removes the toast with id. Unknown ids are ignored.
// Returns whether a toast was removed.
func (d *Dispatcher) Dismiss(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.toasts {
		if e.toast.ID == id {
			d.removeLocked(e)
			return true
		}
	}
	return false
}

// ClearAll cancels every pending timer and empties the list.
func (d *Dispatcher) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.toasts {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++
	}
	d.toasts = nil
	d.byKey = make(map[string]*entry)
}

// Active returns a snapshot of the active toasts, oldest first.
func (d *Dispatcher) Active() []Toast {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Toast, 0, len(d.toasts))
	for _, e := range d.toasts {
		out = append(out, e.toast)
	}
	return out
}

func (d *Dispatcher) Success(message string) string {
	return d.Publish(message, SeveritySuccess, d.duration)
}

func (d *Dispatcher) Error(message string) string {
	return d.Publish(message, SeverityError, d.duration)
}

func (d *Dispatcher) Info(message string) string {
	return d.Publish(message, SeverityInfo, d.duration)
}

func (d *Dispatcher) Warning(message string) string {
	return d.Publish(message, SeverityWarning, d.duration)
}
