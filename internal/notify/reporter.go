package notify

import (
	"sync"
	"time"

	"github.com/hpungsan/shelf/internal/logger"
)

// DefaultRateLimitWindow suppresses repeats of the same (action, outcome).
const DefaultRateLimitWindow = time.Second

type defaultText struct {
	success string
	failure string
}

var defaultMessages = map[string]defaultText{
	ActionAdd:       {"Card added successfully", "Failed to add card"},
	ActionEdit:      {"Card updated successfully", "Failed to update card"},
	ActionDelete:    {"Card deleted successfully", "Failed to delete card"},
	ActionArchive:   {"Card archived successfully", "Failed to archive card"},
	ActionUnarchive: {"Card restored successfully", "Failed to restore card"},
	ActionDuplicate: {"Card duplicated successfully", "Failed to duplicate card"},
	ActionImport:    {"Cards imported successfully", "Failed to import cards"},
	ActionExport:    {"Cards exported successfully", "Failed to export cards"},
}

// DefaultMessage returns the text shown for an event that carries none.
func DefaultMessage(action string, outcome Outcome) string {
	texts, known := defaultMessages[action]
	switch outcome {
	case OutcomeSuccess:
		if known {
			return texts.success
		}
		return action + " successful"
	case OutcomeError:
		if known {
			return texts.failure
		}
		return action + " failed"
	default:
		return action
	}
}

// SeverityFor maps an outcome onto a toast severity.
func SeverityFor(o Outcome) Severity {
	switch o {
	case OutcomeError:
		return SeverityError
	case OutcomeWarning:
		return SeverityWarning
	case OutcomeInfo:
		return SeverityInfo
	default:
		return SeveritySuccess
	}
}

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	Window time.Duration // 0 = DefaultRateLimitWindow
	Log    logger.Logger
	Now    func() time.Time // for tests
}

// Reporter turns bus events into toasts, dropping repeats of the same
// (action, outcome) pair seen within the rate-limit window.
type Reporter struct {
	dispatcher  *Dispatcher
	window      time.Duration
	log         logger.Logger
	now         func() time.Time
	unsubscribe func()

	mu   sync.Mutex
	last map[string]time.Time
}

// NewReporter subscribes a reporter to bus. Call Close to detach it.
func NewReporter(bus *Bus, dispatcher *Dispatcher, opts ReporterOptions) *Reporter {
	r := &Reporter{
		dispatcher: dispatcher,
		window:     opts.Window,
		log:        opts.Log,
		now:        opts.Now,
		last:       make(map[string]time.Time),
	}
	if r.window <= 0 {
		r.window = DefaultRateLimitWindow
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.unsubscribe = bus.Subscribe(r.handle)
	return r
}

// Close detaches the reporter from the bus.
func (r *Reporter) Close() {
	r.unsubscribe()
}

func (r *Reporter) handle(e Event) {
	key := e.Action + ":" + string(e.Outcome)
	now := r.now()

	r.mu.Lock()
	if prev, ok := r.last[key]; ok && now.Sub(prev) < r.window {
		r.mu.Unlock()
		r.log.Debug("event rate-limited", logger.String("key", key))
		return
	}
	r.last[key] = now
	r.mu.Unlock()

	msg := e.Message
	if msg == "" {
		msg = DefaultMessage(e.Action, e.Outcome)
	}
	r.dispatcher.Publish(msg, SeverityFor(e.Outcome), r.dispatcher.DefaultDuration())
}
