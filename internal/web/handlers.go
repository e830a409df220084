package web

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/shelf/internal/app"
	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/logger"
	"github.com/hpungsan/shelf/internal/settings"
)

// Handlers contains HTTP route handlers for the card view.
type Handlers struct {
	app      *app.App
	renderer *Renderer
}

// page fills the fields every template shows from current settings.
func (h *Handlers) page(r *http.Request, title string) PageData {
	ctx := r.Context()
	appTitle := h.app.Settings.Title(ctx)
	if title == "" {
		title = appTitle
	}
	return PageData{
		Title:    title,
		AppTitle: appTitle,
		Version:  h.renderer.version,
		Theme:    h.app.Settings.Theme(ctx),
		ViewMode: h.app.Settings.ViewMode(ctx),
		Toasts:   h.app.Toasts.Active(),
	}
}

// HandleList handles GET /cards. Query params: q, tag, archived.
// Without archived the persisted show-archived setting applies.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := card.Filter{
		Query:        q.Get("q"),
		Tag:          q.Get("tag"),
		ShowArchived: h.app.Settings.ShowArchived(r.Context()),
	}
	if v := q.Get("archived"); v != "" {
		filter.ShowArchived = parseBool(v)
	}

	list := h.app.Cards.Filter(filter)
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"cards": list})
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:     h.page(r, ""),
		Cards:        list,
		Tags:         h.app.Cards.AllTags(),
		Counts:       h.app.Cards.Counts(),
		Query:        filter.Query,
		Tag:          filter.Tag,
		ShowArchived: filter.ShowArchived,
	})
}

// HandleDetail handles GET /cards/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Cards.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.renderError(w, r, h.page(r, ""), err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, c)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData:    h.page(r, c.Title),
		Card:        c,
		Description: renderMarkdown(c.Description),
	})
}

// HandleArchive handles POST /cards/{id}/archive. Form value archived
// ("true"/"false") sets the flag; without it the flag is toggled.
func (h *Handlers) HandleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, h.page(r, ""), errors.NewInvalidRequest("invalid form data"))
		return
	}

	var archived bool
	if v := r.FormValue("archived"); v != "" {
		archived = parseBool(v)
	} else {
		current, err := h.app.Cards.Get(id)
		if err != nil {
			h.renderer.renderError(w, r, h.page(r, ""), err)
			return
		}
		archived = !current.IsArchived
	}

	c, err := h.app.Cards.Archive(r.Context(), id, archived)
	if err != nil {
		h.renderer.renderError(w, r, h.page(r, ""), err)
		return
	}
	h.respond(w, r, "/cards", c)
}

// HandleDuplicate handles POST /cards/{id}/duplicate.
func (h *Handlers) HandleDuplicate(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Cards.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.renderError(w, r, h.page(r, ""), err)
		return
	}
	h.respond(w, r, "/cards/"+c.ID, c)
}

// HandleDelete handles POST /cards/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.app.Cards.Remove(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, h.page(r, ""), err)
		return
	}
	h.respond(w, r, "/cards", map[string]any{"deleted": true, "id": id})
}

// HandleExport handles GET /export, a download of the whole collection.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("%s-%s.json", cards.ExportFileName, time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := h.app.Cards.Export(r.Context(), w); err != nil {
		h.app.Log.Error("export download failed", logger.Error(err))
	}
}

// HandleToasts handles GET /toasts, the active notifications oldest first.
func (h *Handlers) HandleToasts(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"toasts": h.app.Toasts.Active()})
}

// HandleDismissToast handles POST /toasts/{id}/dismiss.
func (h *Handlers) HandleDismissToast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.app.Toasts.Dismiss(id) && wantsJSON(r) {
		renderJSON(w, http.StatusNotFound, map[string]any{"dismissed": false, "id": id})
		return
	}
	h.respond(w, r, "/cards", map[string]any{"dismissed": true, "id": id})
}

// HandleThemeCSS handles GET /theme.css. It carries the user's custom
// colours as CSS variables so pages need no inline styles.
func (h *Handlers) HandleThemeCSS(w http.ResponseWriter, r *http.Request) {
	colors := h.app.Settings.CustomColors(r.Context())
	if colors == nil {
		c := settings.DefaultColors
		colors = &c
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	vars := []struct{ name, value string }{
		{"--primary", colors.Primary},
		{"--background", colors.Background},
		{"--card-bg", colors.CardBg},
		{"--text-primary", colors.TextPrimary},
		{"--text-secondary", colors.TextSecondary},
		{"--border", colors.Border},
	}
	if hover, ok := adjustColor(colors.Primary, -20); ok {
		vars = append(vars, struct{ name, value string }{"--primary-hover", hover})
	}
	var b strings.Builder
	b.WriteString(".custom-theme {\n")
	for _, v := range vars {
		if cssValue.MatchString(v.value) {
			fmt.Fprintf(&b, "  %s: %s;\n", v.name, v.value)
		}
	}
	b.WriteString("}\n")
	_, _ = w.Write([]byte(b.String()))
}

// adjustColor shifts each channel of a #rgb or #rrggbb colour by amount,
// clamped to 0..255. Other notations are not adjusted.
func adjustColor(hex string, amount int) (string, bool) {
	h, ok := strings.CutPrefix(hex, "#")
	if !ok {
		return "", false
	}
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return "", false
	}
	var out strings.Builder
	out.WriteByte('#')
	for i := 0; i < 6; i += 2 {
		v, err := strconv.ParseUint(h[i:i+2], 16, 8)
		if err != nil {
			return "", false
		}
		fmt.Fprintf(&out, "%02x", min(255, max(0, int(v)+amount)))
	}
	return out.String(), true
}

// cssValue accepts hex colours and simple functional notations.
var cssValue = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|(rgb|rgba|hsl|hsla)\([0-9., %]+\))$`)

// respond finishes a mutation: JSON when asked for, else a redirect.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, redirect string, body any) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "on"
}
