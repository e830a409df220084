package cards

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
)

func TestAdd_RustBook(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.repo.Add(context.Background(), AddInput{
		Title:   "Rust Book",
		TagText: "lang, reading",
		URL:     "https://rust-lang.org",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"lang", "reading"}, c.Tags)
	require.False(t, c.IsArchived)
	require.True(t, c.ShowIcon)
	require.Equal(t, card.IconLetter, c.Icon.Type)
	require.Equal(t, "R", c.Icon.Letter)
	require.True(t, card.InPalette(c.Icon.Color), "color %s not in palette", c.Icon.Color)
	require.Equal(t, "https://rust-lang.org", c.URL)
	require.Equal(t, c.CreatedAt, c.UpdatedAt)
	require.NotEmpty(t, c.ID)

	ev := env.rec.last()
	require.Equal(t, notify.ActionAdd, ev.Action)
	require.Equal(t, notify.OutcomeSuccess, ev.Outcome)
}

func TestAdd_ListGrowsWithUniqueIDs(t *testing.T) {
	env := newTestEnv(t)
	ids := make(map[string]bool)

	for i := 0; i < 20; i++ {
		before := len(env.repo.List())
		id := env.mustAdd(t, AddInput{Title: "card"})
		after := env.repo.List()

		require.Len(t, after, before+1)
		require.False(t, ids[id], "id %s reused", id)
		ids[id] = true
		require.Equal(t, id, after[len(after)-1].ID)
	}
}

func TestAdd_Persists(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustAdd(t, AddInput{Title: "Go Tour", Tags: []string{"go", " go ", "lang"}})

	var persisted []card.Card
	require.NoError(t, json.Unmarshal([]byte(env.stored(t)), &persisted))
	require.Len(t, persisted, 1)
	require.Equal(t, id, persisted[0].ID)
	require.Equal(t, []string{"go", "lang"}, persisted[0].Tags)
}

func TestAdd_TagsSliceWinsOverText(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.repo.Add(context.Background(), AddInput{
		Title:   "x",
		Tags:    []string{"a"},
		TagText: "b, c",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, c.Tags)
}

func TestAdd_IconPriority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.repo.Add(ctx, AddInput{
		Title:   "Docs",
		IconURL: " https://example.com/icon.png ",
		Icon:    &card.Icon{Type: card.IconLetter, Letter: "Z", Color: "#000000"},
	})
	require.NoError(t, err)
	require.Equal(t, card.ImageIcon("https://example.com/icon.png"), c.Icon)

	c, err = env.repo.Add(ctx, AddInput{
		Title: "Docs",
		Icon:  &card.Icon{Type: card.IconLetter, Letter: "Z", Color: "#000000"},
	})
	require.NoError(t, err)
	require.Equal(t, "Z", c.Icon.Letter)
	require.Equal(t, "#000000", c.Icon.Color)

	c, err = env.repo.Add(ctx, AddInput{Title: "docs", Icon: &card.Icon{Type: card.IconLetter}})
	require.NoError(t, err)
	require.Equal(t, "D", c.Icon.Letter)
	require.True(t, card.InPalette(c.Icon.Color))

	hidden, err := env.repo.Add(ctx, AddInput{Title: "quiet", IconURL: "https://example.com/q.png", ShowIcon: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, hidden.ShowIcon)
	require.True(t, hidden.DisplayIcon().IsLetter())
}

const pngDataURL = "data:image/png;base64,iVBORw0KGgo="

func TestAdd_UploadedImageIcon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.repo.Add(ctx, AddInput{
		Title: "SKARK",
		Icon:  &card.Icon{Type: card.IconImage, URL: pngDataURL},
	})
	require.NoError(t, err)
	require.Equal(t, card.ImageIcon(pngDataURL), c.Icon)

	got, err := env.repo.Get(c.ID)
	require.NoError(t, err)
	require.Equal(t, pngDataURL, got.Icon.URL)
	require.Contains(t, env.stored(t), pngDataURL)

	updated, err := env.repo.Update(ctx, c.ID, UpdateInput{
		Icon: &card.Icon{Type: card.IconImage, URL: "data:image/svg+xml;base64,PHN2Zy8+"},
	})
	require.NoError(t, err)
	require.Equal(t, "data:image/svg+xml;base64,PHN2Zy8+", updated.Icon.URL)

	// Data URLs are only valid as the icon itself.
	_, err = env.repo.Add(ctx, AddInput{Title: "x", IconURL: pngDataURL})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	_, err = env.repo.Add(ctx, AddInput{Title: "x", URL: pngDataURL})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
}

func TestAdd_IconFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := filepath.Join(env.dir, "skark.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0600))

	c, err := env.repo.Add(ctx, AddInput{
		Title:    "SKARK",
		IconFile: path,
		Icon:     &card.Icon{Type: card.IconLetter, Letter: "Z"},
	})
	require.NoError(t, err)
	require.Equal(t, card.ImageIcon(pngDataURL), c.Icon)

	// IconURL still wins.
	c, err = env.repo.Add(ctx, AddInput{Title: "SKARK", IconURL: "https://example.com/s.png", IconFile: path})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/s.png", c.Icon.URL)

	id := env.mustAdd(t, AddInput{Title: "later"})
	updated, err := env.repo.Update(ctx, id, UpdateInput{IconFile: &path})
	require.NoError(t, err)
	require.Equal(t, pngDataURL, updated.Icon.URL)

	outside := filepath.Join(t.TempDir(), "skark.png")
	require.NoError(t, os.WriteFile(outside, []byte("\x89PNG\r\n\x1a\n"), 0600))
	_, err = env.repo.Add(ctx, AddInput{Title: "x", IconFile: outside})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	text := filepath.Join(env.dir, "notes.png")
	require.NoError(t, os.WriteFile(text, []byte("just text"), 0600))
	_, err = env.repo.Add(ctx, AddInput{Title: "x", IconFile: text})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	require.Len(t, env.repo.List(), 3)
}

func TestAdd_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input AddInput
	}{
		{"empty title", AddInput{Title: "   "}},
		{"bad url", AddInput{Title: "x", URL: "not a url"}},
		{"bad icon url", AddInput{Title: "x", IconURL: "ftp://example.com/i.png"}},
		{"unknown icon type", AddInput{Title: "x", Icon: &card.Icon{Type: "emoji"}}},
		{"image icon without url", AddInput{Title: "x", Icon: &card.Icon{Type: card.IconImage}}},
		{"non-image data url", AddInput{Title: "x", Icon: &card.Icon{Type: card.IconImage, URL: "data:text/html;base64,PGI+"}}},
		{"undecodable data url", AddInput{Title: "x", Icon: &card.Icon{Type: card.IconImage, URL: "data:image/png;base64,%%%"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.repo.Add(ctx, tc.input)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

			ev := env.rec.last()
			require.Equal(t, notify.ActionAdd, ev.Action)
			require.Equal(t, notify.OutcomeError, ev.Outcome)
		})
	}
	require.Empty(t, env.repo.List())
	require.Equal(t, "[]", env.stored(t))
}

func TestAdd_StorageFailureLeavesCollection(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, AddInput{Title: "kept"})
	before := env.stored(t)

	env.store.setFailing(true, false)
	_, err := env.repo.Add(context.Background(), AddInput{Title: "lost"})
	require.True(t, errors.Is(err, errors.ErrStorage), "got %v", err)

	require.Len(t, env.repo.List(), 1)
	require.Equal(t, before, env.stored(t))
	require.Equal(t, notify.OutcomeError, env.rec.last().Outcome)
}
