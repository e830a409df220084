package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/notify"
	"github.com/hpungsan/shelf/internal/storage"
)

const corruptColorsMessage = "Theme settings were corrupted and have been reset"

// Options wires a Repository. Store is required.
type Options struct {
	Store storage.Store
	Bus   *notify.Bus
	Log   logger.Logger
	Files files.Policy
}

// Repository reads and writes individual settings.
type Repository struct {
	mu     sync.Mutex
	store  storage.Store
	bus    *notify.Bus
	log    logger.Logger
	policy files.Policy
}

// New creates a settings repository.
func New(opts Options) *Repository {
	r := &Repository{
		store:  opts.Store,
		bus:    opts.Bus,
		log:    opts.Log,
		policy: opts.Files,
	}
	if r.bus == nil {
		r.bus = notify.NewBus()
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	return r
}

// Init writes defaults for absent keys and removes unreadable custom colours.
func (r *Repository) Init(ctx context.Context) error {
	corrupt, err := r.init(ctx)
	if corrupt {
		r.bus.Emit(notify.ActionStorage, notify.OutcomeError, corruptColorsMessage)
	}
	if err != nil {
		r.log.Error("failed to initialise settings", logger.Error(err))
		return err
	}
	return nil
}

func (r *Repository) init(ctx context.Context) (corrupt bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defaults := []struct {
		key   string
		value string
	}{
		{KeyTheme, DefaultTheme},
		{KeyViewMode, DefaultViewMode},
		{KeyShowArchived, strconv.FormatBool(DefaultShowArchived)},
		{KeyTitle, DefaultTitle},
	}
	for _, d := range defaults {
		v, ok, err := r.store.Get(ctx, d.key)
		if err != nil {
			return false, errors.NewStorage("get", d.key, err)
		}
		// An empty string counts as unset, except for show-archived
		if ok && (v != "" || d.key == KeyShowArchived) {
			continue
		}
		if err := r.store.Set(ctx, d.key, d.value); err != nil {
			return false, errors.NewStorage("set", d.key, err)
		}
	}

	raw, ok, err := r.store.Get(ctx, KeyCustomColors)
	if err != nil {
		return false, errors.NewStorage("get", KeyCustomColors, err)
	}
	if ok && !json.Valid([]byte(raw)) {
		r.log.Warn("custom colours corrupted, removing")
		if err := r.store.Delete(ctx, KeyCustomColors); err != nil {
			return true, errors.NewStorage("delete", KeyCustomColors, err)
		}
		return true, nil
	}
	return false, nil
}

// read returns the raw value of key; absence and read errors yield ok=false.
func (r *Repository) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.log.Warn("failed to read setting", logger.String("key", key), logger.Error(err))
		return "", false
	}
	return v, ok
}

func (r *Repository) write(ctx context.Context, key, value string) error {
	if err := r.store.Set(ctx, key, value); err != nil {
		return errors.NewStorage("set", key, err)
	}
	return nil
}

// Theme returns the stored theme, or the default when absent or unknown.
func (r *Repository) Theme(ctx context.Context) string {
	v, ok := r.read(ctx, KeyTheme)
	if !ok || ValidateTheme(v) != nil {
		return DefaultTheme
	}
	return v
}

// SaveTheme stores theme.
func (r *Repository) SaveTheme(ctx context.Context, theme string) error {
	return r.save(notify.ActionTheme, "Failed to save theme preference", func() (notify.Outcome, string, error) {
		theme = strings.TrimSpace(theme)
		if err := ValidateTheme(theme); err != nil {
			return "", "", err
		}
		if err := r.write(ctx, KeyTheme, theme); err != nil {
			return "", "", err
		}
		return notify.OutcomeSuccess, fmt.Sprintf("Theme changed to %s", ThemeLabel(theme)), nil
	})
}

// CustomColors returns the saved custom colours, or nil.
func (r *Repository) CustomColors(ctx context.Context) *Colors {
	v, ok := r.read(ctx, KeyCustomColors)
	if !ok {
		return nil
	}
	var c Colors
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		r.log.Warn("failed to parse custom colours", logger.Error(err))
		return nil
	}
	return &c
}

// SaveCustomColors stores the custom theme palette.
func (r *Repository) SaveCustomColors(ctx context.Context, c Colors) error {
	return r.save(notify.ActionCustomTheme, "Failed to save custom theme", func() (notify.Outcome, string, error) {
		if err := r.writeColors(ctx, c); err != nil {
			return "", "", err
		}
		return notify.OutcomeSuccess, "Custom theme saved", nil
	})
}

func (r *Repository) writeColors(ctx context.Context, c Colors) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.NewInternal(err)
	}
	return r.write(ctx, KeyCustomColors, string(data))
}

// ViewMode returns the stored layout, or the default.
func (r *Repository) ViewMode(ctx context.Context) string {
	v, ok := r.read(ctx, KeyViewMode)
	if !ok || ValidateViewMode(v) != nil {
		return DefaultViewMode
	}
	return v
}

// SaveViewMode stores the card layout.
func (r *Repository) SaveViewMode(ctx context.Context, mode string) error {
	return r.save(notify.ActionView, "Failed to save view preference", func() (notify.Outcome, string, error) {
		mode = strings.TrimSpace(mode)
		if err := ValidateViewMode(mode); err != nil {
			return "", "", err
		}
		if err := r.write(ctx, KeyViewMode, mode); err != nil {
			return "", "", err
		}
		return notify.OutcomeInfo, fmt.Sprintf("View changed to %s mode", mode), nil
	})
}

// ShowArchived reports whether archived cards are shown instead of active ones.
func (r *Repository) ShowArchived(ctx context.Context) bool {
	v, _ := r.read(ctx, KeyShowArchived)
	return v == "true"
}

// SaveShowArchived stores the archive visibility toggle.
func (r *Repository) SaveShowArchived(ctx context.Context, show bool) error {
	return r.save(notify.ActionArchiveVisibility, "Failed to save archive view preference", func() (notify.Outcome, string, error) {
		if err := r.write(ctx, KeyShowArchived, strconv.FormatBool(show)); err != nil {
			return "", "", err
		}
		if show {
			return notify.OutcomeInfo, "Showing archived cards", nil
		}
		return notify.OutcomeInfo, "Hiding archived cards", nil
	})
}

// Title returns the app title, or the default.
func (r *Repository) Title(ctx context.Context) string {
	v, ok := r.read(ctx, KeyTitle)
	if !ok || v == "" {
		return DefaultTitle
	}
	return v
}

// SaveTitle stores the app title. Blank titles are rejected.
func (r *Repository) SaveTitle(ctx context.Context, title string) error {
	return r.save(notify.ActionTitle, "Failed to save app title", func() (notify.Outcome, string, error) {
		title = strings.TrimSpace(title)
		if title == "" {
			return "", "", errors.NewInvalidField("title", "must not be empty")
		}
		if err := r.write(ctx, KeyTitle, title); err != nil {
			return "", "", err
		}
		return notify.OutcomeSuccess, "App title updated", nil
	})
}

// Usage reports how much of the store the app's keys occupy.
func (r *Repository) Usage(ctx context.Context) (*storage.UsageInfo, error) {
	info, err := storage.Info(ctx, r.store, KeyPrefix)
	if err != nil {
		return nil, errors.NewStorage("keys", KeyPrefix, err)
	}
	return info, nil
}

// save runs fn under the lock and publishes its outcome.
func (r *Repository) save(action, failure string, fn func() (notify.Outcome, string, error)) error {
	r.mu.Lock()
	outcome, msg, err := fn()
	r.mu.Unlock()

	if err != nil {
		r.logFailure(action, err)
		r.bus.Publish(notify.Event{
			Action:  action,
			Outcome: notify.OutcomeError,
			Message: failure,
			Context: map[string]any{"error": err.Error()},
		})
		return err
	}
	r.bus.Emit(action, outcome, msg)
	return nil
}

func (r *Repository) logFailure(action string, err error) {
	if errors.Is(err, errors.ErrStorage) || errors.Is(err, errors.ErrInternal) {
		r.log.Error("settings operation failed", logger.String("action", action), logger.Error(err))
		return
	}
	r.log.Debug("settings operation rejected", logger.String("action", action), logger.Error(err))
}
