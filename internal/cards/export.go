package cards

import (
	"context"
	"encoding/json"
	"io"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/files"
	"github.com/hpungsan/shelf/internal/notify"
)

// ExportFileName is the stem of default export files.
const ExportFileName = "bookmark-cards"

// ExportOutput contains the result of ExportFile.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// MarshalCards renders cards as the pretty-printed export document.
func MarshalCards(cards []card.Card) ([]byte, error) {
	if cards == nil {
		cards = []card.Card{}
	}
	return json.MarshalIndent(cards, "", "  ")
}

// Export writes the whole collection to w as a JSON array and returns the
// number of cards written.
func (r *Repository) Export(ctx context.Context, w io.Writer) (int, error) {
	n, err := r.export(w)
	if err != nil {
		return 0, r.fail(notify.ActionExport, err)
	}
	r.succeed(notify.ActionExport, map[string]any{"count": n})
	return n, nil
}

func (r *Repository) export(w io.Writer) (int, error) {
	cards := r.List()
	data, err := MarshalCards(cards)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return 0, errors.NewInternal(err)
	}
	return len(cards), nil
}

// ExportFile writes the collection to path, or to a timestamped file in the
// exports directory when path is empty. The file is replaced atomically.
func (r *Repository) ExportFile(ctx context.Context, path string) (*ExportOutput, error) {
	out, err := r.exportFile(path)
	if err != nil {
		return nil, r.fail(notify.ActionExport, err)
	}
	r.succeed(notify.ActionExport, map[string]any{"count": out.Count, "path": out.Path})
	return out, nil
}

func (r *Repository) exportFile(path string) (*ExportOutput, error) {
	now := r.now()
	if path == "" {
		path = r.policy.DefaultPath(ExportFileName, ".json", now)
	}
	if err := r.policy.ValidatePath(path, files.ModeWrite, files.CardExtensions); err != nil {
		return nil, err
	}

	var count int
	err := files.WriteAtomic(path, func(w io.Writer) error {
		n, err := r.export(w)
		count = n
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       path,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}
