package settings

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/notify"
)

// ExportFileName is the stem of default settings export files.
const ExportFileName = "card-settings"

// ImportOutput lists which document fields were applied.
type ImportOutput struct {
	Applied []string `json:"applied"`
	Ignored []string `json:"ignored"`
}

// ExportOutput contains the result of ExportFile.
type ExportOutput struct {
	Path   string `json:"path"`
	Format string `json:"format"` // "json" or "yaml"
}

// Export aggregates every setting into one document.
func (r *Repository) Export(ctx context.Context) *Document {
	doc := r.snapshot(ctx)
	r.bus.Emit(notify.ActionSettingsExport, notify.OutcomeSuccess, "Settings exported successfully")
	return doc
}

func (r *Repository) snapshot(ctx context.Context) *Document {
	return &Document{
		Title:             r.Title(ctx),
		Theme:             r.Theme(ctx),
		CustomThemeColors: r.CustomColors(ctx),
		ViewMode:          r.ViewMode(ctx),
		ShowArchived:      r.ShowArchived(ctx),
	}
}

// MarshalDocument renders doc as pretty JSON, or YAML when format is "yaml".
func MarshalDocument(doc *Document, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// formatFor picks the encoding from a file extension.
func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// ExportFile writes the settings document to path (JSON or YAML by
// extension), or to a timestamped JSON file in the exports directory.
func (r *Repository) ExportFile(ctx context.Context, path string) (*ExportOutput, error) {
	if path == "" {
		path = r.policy.DefaultPath(ExportFileName, ".json", time.Now())
	}
	out, err := r.exportFile(ctx, path)
	if err != nil {
		r.logFailure(notify.ActionSettingsExport, err)
		r.bus.Emit(notify.ActionSettingsExport, notify.OutcomeError, "Failed to export settings")
		return nil, err
	}
	r.bus.Emit(notify.ActionSettingsExport, notify.OutcomeSuccess, "Settings exported successfully")
	return out, nil
}

func (r *Repository) exportFile(ctx context.Context, path string) (*ExportOutput, error) {
	if err := r.policy.ValidatePath(path, files.ModeWrite, files.SettingsExtensions); err != nil {
		return nil, err
	}
	format := formatFor(path)
	data, err := MarshalDocument(r.snapshot(ctx), format)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	err = files.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ExportOutput{Path: path, Format: format}, nil
}

// Import applies a JSON settings object. Each recognised, well-formed field
// is saved on its own; anything else is ignored and reported.
func (r *Repository) Import(ctx context.Context, raw []byte) (*ImportOutput, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return r.importFailed(errors.NewInvalidFormat("settings document must be a JSON object"))
	}
	return r.importFields(ctx, fields)
}

// ImportYAML applies a YAML settings document with the same rules as Import.
func (r *Repository) ImportYAML(ctx context.Context, raw []byte) (*ImportOutput, error) {
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil || fields == nil {
		return r.importFailed(errors.NewInvalidFormat("settings document must be a YAML mapping"))
	}
	return r.importFields(ctx, fields)
}

// ImportFile validates path and imports it as JSON or YAML by extension.
func (r *Repository) ImportFile(ctx context.Context, path string) (*ImportOutput, error) {
	if err := r.policy.ValidatePath(path, files.ModeRead, files.SettingsExtensions); err != nil {
		return r.importFailed(err)
	}
	data, err := files.ReadFile(path)
	if err != nil {
		return r.importFailed(err)
	}
	if formatFor(path) == "yaml" {
		return r.ImportYAML(ctx, data)
	}
	return r.Import(ctx, data)
}

func (r *Repository) importFailed(err error) (*ImportOutput, error) {
	r.logFailure(notify.ActionSettingsImport, err)
	r.bus.Emit(notify.ActionSettingsImport, notify.OutcomeError, "Failed to import settings")
	return nil, err
}

func (r *Repository) importFields(ctx context.Context, fields map[string]any) (*ImportOutput, error) {
	out, err := r.apply(ctx, fields)
	if err != nil {
		return r.importFailed(err)
	}
	r.bus.Emit(notify.ActionSettingsImport, notify.OutcomeSuccess, "Settings imported successfully")
	return out, nil
}

// apply saves each usable field quietly. Storage failures abort.
func (r *Repository) apply(ctx context.Context, fields map[string]any) (*ImportOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := &ImportOutput{Applied: []string{}, Ignored: []string{}}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		key, value, ok := parseField(name, fields[name])
		if !ok {
			out.Ignored = append(out.Ignored, name)
			continue
		}
		if err := r.write(ctx, key, value); err != nil {
			return nil, err
		}
		out.Applied = append(out.Applied, name)
	}
	return out, nil
}

// parseField maps a document field to its storage key and raw value.
func parseField(name string, v any) (key, value string, ok bool) {
	switch name {
	case "title":
		s, isStr := v.(string)
		s = strings.TrimSpace(s)
		if !isStr || s == "" {
			return "", "", false
		}
		return KeyTitle, s, true
	case "theme":
		s, isStr := v.(string)
		if !isStr || ValidateTheme(s) != nil {
			return "", "", false
		}
		return KeyTheme, s, true
	case "viewMode":
		s, isStr := v.(string)
		if !isStr || ValidateViewMode(s) != nil {
			return "", "", false
		}
		return KeyViewMode, s, true
	case "showArchived":
		b, isBool := v.(bool)
		if !isBool {
			return "", "", false
		}
		return KeyShowArchived, strconv.FormatBool(b), true
	case "customThemeColors":
		// Round-trip through JSON so YAML and JSON maps decode alike
		data, err := json.Marshal(v)
		if err != nil {
			return "", "", false
		}
		var c Colors
		if err := json.Unmarshal(data, &c); err != nil || c.Validate() != nil {
			return "", "", false
		}
		data, err = json.Marshal(c)
		if err != nil {
			return "", "", false
		}
		return KeyCustomColors, string(data), true
	default:
		return "", "", false
	}
}

// ResetAll restores every setting to its default and removes custom colours.
// Cards are not touched.
func (r *Repository) ResetAll(ctx context.Context) error {
	if err := r.resetAll(ctx); err != nil {
		r.logFailure(notify.ActionSettingsReset, err)
		r.bus.Emit(notify.ActionSettingsReset, notify.OutcomeError, "Failed to reset settings")
		return err
	}
	r.bus.Emit(notify.ActionSettingsReset, notify.OutcomeInfo, "All settings have been reset")
	return nil
}

func (r *Repository) resetAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.write(ctx, KeyTheme, DefaultTheme); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, KeyCustomColors); err != nil {
		return errors.NewStorage("delete", KeyCustomColors, err)
	}
	if err := r.write(ctx, KeyViewMode, DefaultViewMode); err != nil {
		return err
	}
	if err := r.write(ctx, KeyShowArchived, strconv.FormatBool(DefaultShowArchived)); err != nil {
		return err
	}
	return r.write(ctx, KeyTitle, DefaultTitle)
}

// Current returns every setting without publishing an event.
func (r *Repository) Current(ctx context.Context) *Document {
	return r.snapshot(ctx)
}
