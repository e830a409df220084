package cards

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/notify"
	"github.com/hpungsan/shelf/internal/storage"
)

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	env.mustAdd(t, AddInput{Title: "Rust Book", TagText: "lang, reading", URL: "https://rust-lang.org"})
	id := env.mustAdd(t, AddInput{Title: "Logo", IconURL: "https://example.com/logo.png", Description: "**bold**"})
	env.mustAdd(t, AddInput{Title: "Plain"})
	if _, err := env.repo.Archive(ctx, id, true); err != nil {
		t.Fatal(err)
	}
}

func TestExport_Format(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	var buf bytes.Buffer
	n, err := env.repo.Export(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "[\n  {\n    \"id\""), "not pretty-printed: %q", out[:20])
	require.Contains(t, out, `"tags": [`)

	ev := env.rec.last()
	require.Equal(t, notify.ActionExport, ev.Action)
	require.Equal(t, 3, ev.Context["count"])
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	_, err := env.repo.Export(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, "[]\n", buf.String())
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestEnv(t)
	seed(t, src)
	ctx := context.Background()

	var exported bytes.Buffer
	_, err := src.repo.Export(ctx, &exported)
	require.NoError(t, err)

	dst := newTestEnv(t)
	dst.mustAdd(t, AddInput{Title: "to be replaced"})
	out, err := dst.repo.Import(ctx, exported.Bytes())
	require.NoError(t, err)
	require.Equal(t, 3, out.Count)

	var again bytes.Buffer
	_, err = dst.repo.Export(ctx, &again)
	require.NoError(t, err)
	require.Equal(t, exported.String(), again.String())

	require.Equal(t, src.repo.List()[1].ID, dst.repo.List()[1].ID)
	require.Equal(t, notify.ActionImport, dst.rec.events[len(dst.rec.events)-2].Action)
}

func TestImport_NotAnArray(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, AddInput{Title: "existing"})
	before := env.repo.List()
	stored := env.stored(t)

	for _, doc := range []string{`"not an array"`, `{"cards":[]}`, `null`, `not json`, ``} {
		_, err := env.repo.Import(context.Background(), []byte(doc))
		require.True(t, errors.Is(err, errors.ErrInvalidFormat), "doc %q: got %v", doc, err)
	}

	require.Equal(t, before, env.repo.List())
	require.Equal(t, stored, env.stored(t))
	require.Equal(t, notify.ActionImport, env.rec.last().Action)
	require.Equal(t, notify.OutcomeError, env.rec.last().Outcome)
}

func TestImport_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, AddInput{Title: "existing"})
	before := env.repo.List()

	docs := map[string]string{
		"empty title":   `[{"id":"a","title":"ok"},{"id":"b","title":"  "}]`,
		"duplicate id":  `[{"id":"a","title":"one"},{"id":"a","title":"two"}]`,
		"wrong type":    `[{"id":"a","title":"ok","tags":"x"}]`,
		"not an object": `[{"id":"a","title":"ok"}, 5]`,
		"bad url":       `[{"id":"a","title":"ok","url":"nope"}]`,
		"bad icon":      `[{"id":"a","title":"ok","icon":{"type":"svg"}}]`,
	}
	for name, doc := range docs {
		_, err := env.repo.Import(context.Background(), []byte(doc))
		require.True(t, errors.Is(err, errors.ErrInvalidFormat), "%s: got %v", name, err)
	}
	require.Equal(t, before, env.repo.List())
}

func TestImport_FillsMissing(t *testing.T) {
	env := newTestEnvWithClock(t, frozenClock())
	doc := `[{"title":"Bare","tags":["a","","a"," b "]},{"id":"keep","title":"Old","createdAt":"2020-01-01T00:00:00Z"}]`

	out, err := env.repo.Import(context.Background(), []byte(doc))
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)

	list := env.repo.List()
	require.NotEmpty(t, list[0].ID)
	require.Equal(t, []string{"a", "b"}, list[0].Tags)
	require.True(t, list[0].ShowIcon)
	require.Equal(t, card.IconLetter, list[0].Icon.Type)
	require.Equal(t, "B", list[0].Icon.Letter)
	require.Equal(t, frozenClock()(), list[0].CreatedAt)

	require.Equal(t, "keep", list[1].ID)
	require.Equal(t, list[1].CreatedAt, list[1].UpdatedAt)
	require.Equal(t, 2020, list[1].CreatedAt.Year())
}

func TestImport_DataURLIcon(t *testing.T) {
	env := newTestEnv(t)
	doc := `[{"id":"1","title":"SKARK","icon":{"type":"image","url":"` + pngDataURL + `"}}]`

	out, err := env.repo.Import(context.Background(), []byte(doc))
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)

	c, err := env.repo.Get("1")
	require.NoError(t, err)
	require.Equal(t, card.ImageIcon(pngDataURL), c.Icon)

	var buf bytes.Buffer
	_, err = env.repo.Export(context.Background(), &buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), pngDataURL)

	_, err = env.repo.Import(context.Background(), []byte(`[{"title":"x","url":"`+pngDataURL+`"}]`))
	require.True(t, errors.Is(err, errors.ErrInvalidFormat), "got %v", err)
}

func TestImport_EmptyArray(t *testing.T) {
	env := newTestEnv(t)
	env.mustAdd(t, AddInput{Title: "x"})
	out, err := env.repo.Import(context.Background(), []byte(`[]`))
	require.NoError(t, err)
	require.Equal(t, 0, out.Count)
	require.Empty(t, env.repo.List())
	require.Equal(t, "[]", env.stored(t))
}

func TestExportFile_ImportFile(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)
	ctx := context.Background()

	out, err := env.repo.ExportFile(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 3, out.Count)
	require.Equal(t, env.dir, filepath.Dir(out.Path))
	require.True(t, strings.HasPrefix(filepath.Base(out.Path), ExportFileName+"-"))
	require.Equal(t, ".json", filepath.Ext(out.Path))

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	var decoded []card.Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)

	other := newTestEnv(t)
	other.repo.policy.AllowedPaths = []string{env.dir}
	imp, err := other.repo.ImportFile(ctx, out.Path)
	require.NoError(t, err)
	require.Equal(t, 3, imp.Count)
}

func TestExportFile_RejectsBadPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.repo.ExportFile(ctx, filepath.Join(t.TempDir(), "cards.json"))
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	_, err = env.repo.ExportFile(ctx, filepath.Join(env.dir, "cards.yaml"))
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	_, err = env.repo.ImportFile(ctx, filepath.Join(env.dir, "missing.json"))
	require.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)
	require.Equal(t, notify.ActionImport, env.rec.last().Action)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("absent key writes empty array", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, "[]", env.stored(t))
		require.Zero(t, env.rec.count())
	})

	t.Run("corrupt data resets", func(t *testing.T) {
		store := storage.NewMemory()
		require.NoError(t, store.Set(ctx, StorageKey, `{"oops":`))
		bus := notify.NewBus()
		rec := &recorder{}
		bus.Subscribe(rec.handle)

		repo := New(Options{Store: store, Bus: bus})
		require.NoError(t, repo.Load(ctx))
		require.Empty(t, repo.List())

		raw, _, _ := store.Get(ctx, StorageKey)
		require.Equal(t, "[]", raw)

		ev := rec.last()
		require.Equal(t, notify.ActionStorage, ev.Action)
		require.Equal(t, notify.OutcomeError, ev.Outcome)
		require.Equal(t, "Cards data was corrupted and has been reset", ev.Message)
	})

	t.Run("invalid elements are dropped", func(t *testing.T) {
		store := storage.NewMemory()
		doc := `[null, {}, {"id":"a","title":" A "}, {"id":"a","title":"B"}, {"id":"c","title":"C","url":"nope"}]`
		require.NoError(t, store.Set(ctx, StorageKey, doc))
		bus := notify.NewBus()
		rec := &recorder{}
		bus.Subscribe(rec.handle)

		repo := New(Options{Store: store, Bus: bus})
		require.NoError(t, repo.Load(ctx))

		list := repo.List()
		require.Len(t, list, 2)
		require.Equal(t, "a", list[0].ID)
		require.Equal(t, "A", list[0].Title)
		require.NotEqual(t, "a", list[1].ID)
		require.Equal(t, "B", list[1].Title)

		ev := rec.last()
		require.Equal(t, notify.ActionStorage, ev.Action)
		require.Equal(t, notify.OutcomeWarning, ev.Outcome)
		require.Equal(t, 3, ev.Context["dropped"])
		require.Equal(t, 1, ev.Context["reissued"])

		var persisted []card.Card
		raw, _, _ := store.Get(ctx, StorageKey)
		require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
		require.Len(t, persisted, 2)

		require.NoError(t, repo.Remove(ctx, "a"))
		require.Len(t, repo.List(), 1)
		require.Equal(t, "B", repo.List()[0].Title)
	})

	t.Run("read failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustAdd(t, AddInput{Title: "x"})
		env.store.setFailing(false, true)
		err := env.repo.Load(ctx)
		require.True(t, errors.Is(err, errors.ErrStorage), "got %v", err)
		require.Empty(t, env.repo.List())
	})

	t.Run("reload keeps cards", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.mustAdd(t, AddInput{Title: "persisted", TagText: "a"})
		fresh := New(Options{Store: env.store})
		require.NoError(t, fresh.Load(ctx))
		c, err := fresh.Get(id)
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, c.Tags)
	})
}

func TestSQLiteBacked(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := storage.OpenSQLite(dir)
	require.NoError(t, err)
	repo := New(Options{Store: s})
	require.NoError(t, repo.Load(ctx))
	c, err := repo.Add(ctx, AddInput{Title: "Durable"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = storage.OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()
	repo = New(Options{Store: s})
	require.NoError(t, repo.Load(ctx))
	got, err := repo.Get(c.ID)
	require.NoError(t, err)
	require.Equal(t, "Durable", got.Title)
}
