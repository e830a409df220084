package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hpungsan/shelf/internal/app"
	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/settings"
	"github.com/hpungsan/shelf/internal/storage"
)

func setupTest(t *testing.T) (*app.App, http.Handler) {
	t.Helper()
	a, err := app.New(context.Background(), t.TempDir(), config.DefaultConfig(), storage.NewMemory(), nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	h, err := NewRouter(a, "test")
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return a, h
}

// seedCard adds a card and returns it.
func seedCard(t *testing.T, a *app.App, title, tags string) *card.Card {
	t.Helper()
	c, err := a.Cards.Add(context.Background(), cards.AddInput{
		Title:       title,
		Description: "Notes about **" + title + "**",
		URL:         "https://example.com/" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		TagText:     tags,
	})
	if err != nil {
		t.Fatalf("seed card %q: %v", title, err)
	}
	return c
}

func do(h http.Handler, method, target string, form url.Values, accept string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- HandleList ---

func TestHandleList_Default(t *testing.T) {
	a, h := setupTest(t)
	seedCard(t, a, "Rust Book", "lang, reading")

	rec := do(h, "GET", "/cards", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Rust Book") {
		t.Error("expected card title in response")
	}
	if !strings.Contains(body, settings.DefaultTitle) {
		t.Error("expected app title in response")
	}
	if !strings.Contains(body, `class="light-theme view-grid"`) {
		t.Error("expected theme and view mode classes on body")
	}
	if !strings.Contains(body, "Card added successfully") {
		t.Error("expected active toast in page")
	}
}

func TestHandleList_RootRedirects(t *testing.T) {
	_, h := setupTest(t)
	rec := do(h, "GET", "/", nil, "")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/cards" {
		t.Errorf("Location = %q, want /cards", loc)
	}
}

func TestHandleList_Filters(t *testing.T) {
	a, h := setupTest(t)
	seedCard(t, a, "Rust Book", "lang")
	seedCard(t, a, "Go Tour", "lang, web")
	archived := seedCard(t, a, "Old Blog", "web")
	if _, err := a.Cards.Archive(context.Background(), archived.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"query", "/cards?q=rust", []string{"Rust Book"}},
		{"tag", "/cards?tag=web", []string{"Go Tour"}},
		{"archived", "/cards?archived=true", []string{"Old Blog"}},
		{"none", "/cards", []string{"Rust Book", "Go Tour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "GET", tt.target, nil, "application/json")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp struct {
				Cards []card.Card `json:"cards"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var got []string
			for _, c := range resp.Cards {
				got = append(got, c.Title)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("titles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleList_UsesShowArchivedSetting(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Old Blog", "")
	if _, err := a.Cards.Archive(context.Background(), c.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := a.Settings.SaveShowArchived(context.Background(), true); err != nil {
		t.Fatalf("save show archived: %v", err)
	}

	rec := do(h, "GET", "/cards", nil, "")
	if !strings.Contains(rec.Body.String(), "Old Blog") {
		t.Error("expected archived card when show-archived is saved")
	}
}

func TestHandleList_Empty(t *testing.T) {
	_, h := setupTest(t)
	rec := do(h, "GET", "/cards", nil, "")
	if !strings.Contains(rec.Body.String(), "No cards found") {
		t.Error("expected empty state")
	}
}

// --- HandleDetail ---

func TestHandleDetail(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "lang")

	rec := do(h, "GET", "/cards/"+c.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>Rust Book</strong>") {
		t.Error("expected markdown-rendered description")
	}
	if !strings.Contains(body, "icon-c") {
		t.Error("expected letter icon palette class")
	}
}

func TestHandleDetail_DescriptionHTMLDropped(t *testing.T) {
	a, h := setupTest(t)
	c, err := a.Cards.Add(context.Background(), cards.AddInput{
		Title:       "XSS",
		Description: "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	rec := do(h, "GET", "/cards/"+c.ID, nil, "")
	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Error("raw HTML in description must not be rendered")
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	_, h := setupTest(t)

	rec := do(h, "GET", "/cards/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "card not found") {
		t.Error("expected error message on error page")
	}

	rec = do(h, "GET", "/cards/missing", nil, "application/json")
	var resp struct {
		Error struct {
			Code   string `json:"code"`
			Status int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "NOT_FOUND" || resp.Error.Status != 404 {
		t.Errorf("error = %+v, want NOT_FOUND/404", resp.Error)
	}
}

// --- mutations ---

func TestHandleArchive(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "")

	// Toggle without a form value
	rec := do(h, "POST", "/cards/"+c.ID+"/archive", url.Values{}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	got, _ := a.Cards.Get(c.ID)
	if !got.IsArchived {
		t.Fatal("expected card archived after toggle")
	}

	rec = do(h, "POST", "/cards/"+c.ID+"/archive", url.Values{"archived": {"false"}}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out card.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.IsArchived {
		t.Error("expected card restored")
	}
	if !out.UpdatedAt.After(got.UpdatedAt) {
		t.Error("expected updatedAt to advance")
	}
}

func TestHandleArchive_NotFound(t *testing.T) {
	_, h := setupTest(t)
	rec := do(h, "POST", "/cards/missing/archive", url.Values{}, "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDuplicate(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "lang")

	rec := do(h, "POST", "/cards/"+c.ID+"/duplicate", url.Values{}, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	list := a.Cards.List()
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	dup := list[1]
	if dup.Title != "Rust Book"+cards.CopySuffix {
		t.Errorf("title = %q", dup.Title)
	}
	if loc := rec.Header().Get("Location"); loc != "/cards/"+dup.ID {
		t.Errorf("Location = %q, want /cards/%s", loc, dup.ID)
	}
}

func TestHandleDelete(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "")

	rec := do(h, "POST", "/cards/"+c.ID+"/delete", url.Values{}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(a.Cards.List()) != 0 {
		t.Error("expected card removed")
	}

	rec = do(h, "POST", "/cards/"+c.ID+"/delete", url.Values{}, "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMutations_SameOrigin(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "")

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"cross-site fetch metadata", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-site fetch metadata", map[string]string{"Sec-Fetch-Site": "same-site"}, http.StatusForbidden},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"null origin", map[string]string{"Origin": "null"}, http.StatusForbidden},
		{"foreign referer", map[string]string{"Referer": "https://evil.example/page"}, http.StatusForbidden},
		{"origin wins over referer", map[string]string{"Origin": "https://evil.example", "Referer": "http://example.com/cards"}, http.StatusForbidden},
		{"same origin", map[string]string{"Origin": "http://example.com"}, http.StatusOK},
		{"same referer", map[string]string{"Referer": "http://example.com/cards/" + c.ID}, http.StatusOK},
		{"same-origin fetch metadata", map[string]string{"Sec-Fetch-Site": "same-origin", "Origin": "http://example.com"}, http.StatusOK},
		{"no browser headers", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/cards/"+c.ID+"/archive", strings.NewReader("archived=true"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Accept", "application/json")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Rejected requests never reach the handler.
	req := httptest.NewRequest("POST", "/cards/"+c.ID+"/delete", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete status = %d, want 403", rec.Code)
	}
	if len(a.Cards.List()) != 1 {
		t.Error("cross-origin delete must not remove the card")
	}

	// Reads stay open to any origin.
	req = httptest.NewRequest("GET", "/cards", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rec.Code)
	}
}

func TestMutations_RejectGet(t *testing.T) {
	a, h := setupTest(t)
	c := seedCard(t, a, "Rust Book", "")
	rec := do(h, "GET", "/cards/"+c.ID+"/delete", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

// --- export, toasts, theme ---

func TestHandleExport(t *testing.T) {
	a, h := setupTest(t)
	seedCard(t, a, "Rust Book", "lang")
	seedCard(t, a, "Go Tour", "")

	rec := do(h, "GET", "/export", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, cards.ExportFileName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var exported []card.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(exported) != 2 || exported[0].Title != "Rust Book" {
		t.Errorf("exported = %+v", exported)
	}
}

func TestHandleToasts(t *testing.T) {
	a, h := setupTest(t)
	seedCard(t, a, "Rust Book", "")

	rec := do(h, "GET", "/toasts", nil, "")
	var resp struct {
		Toasts []struct {
			ID       string `json:"id"`
			Message  string `json:"message"`
			Severity string `json:"severity"`
		} `json:"toasts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Toasts) != 1 || resp.Toasts[0].Message != "Card added successfully" {
		t.Fatalf("toasts = %+v", resp.Toasts)
	}

	rec = do(h, "POST", "/toasts/"+resp.Toasts[0].ID+"/dismiss", url.Values{}, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("dismiss status = %d, want 200", rec.Code)
	}
	if len(a.Toasts.Active()) != 0 {
		t.Error("expected toast dismissed")
	}

	rec = do(h, "POST", "/toasts/"+resp.Toasts[0].ID+"/dismiss", url.Values{}, "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second dismiss status = %d, want 404", rec.Code)
	}
}

func TestHandleThemeCSS(t *testing.T) {
	a, h := setupTest(t)
	colors := settings.DefaultColors
	colors.Primary = "#123456"
	colors.Border = "red;}body{display:none"
	if err := a.Settings.SaveCustomColors(context.Background(), colors); err != nil {
		t.Fatalf("save colors: %v", err)
	}

	rec := do(h, "GET", "/theme.css", nil, "")
	body := rec.Body.String()
	if !strings.Contains(body, "--primary: #123456;") {
		t.Errorf("expected custom primary colour, got %q", body)
	}
	if !strings.Contains(body, "--primary-hover: #002042;") {
		t.Errorf("expected darkened hover colour, got %q", body)
	}
	if strings.Contains(body, "display:none") {
		t.Error("unsafe colour value must be dropped")
	}
}

func TestAdjustColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"#6c5ce7", "#5848d3", true},
		{"#0984E3", "#0070cf", true},
		{"#fff", "#ebebeb", true},
		{"#000000", "#000000", true},
		{"6c5ce7", "", false},
		{"red", "", false},
		{"#12345g", "", false},
		{"rgb(1,2,3)", "", false},
	}
	for _, tt := range tests {
		got, ok := adjustColor(tt.in, -20)
		if got != tt.want || ok != tt.ok {
			t.Errorf("adjustColor(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if got, _ := adjustColor("#f0f0f0", 40); got != "#ffffff" {
		t.Errorf("adjustColor clamps to ff, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	_, h := setupTest(t)
	rec := do(h, "GET", "/cards", nil, "")
	for _, name := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if rec.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	_, h := setupTest(t)
	rec := do(h, "GET", "/static/style.css", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ".icon-c7") {
		t.Error("expected palette classes in stylesheet")
	}
}

func TestIconClass(t *testing.T) {
	for i, c := range card.Palette {
		if got := iconClass(c); got != "icon-c"+string(rune('0'+i)) {
			t.Errorf("iconClass(%q) = %q", c, got)
		}
	}
	if got := iconClass("#000000"); got != "icon-c0" {
		t.Errorf("iconClass(unknown) = %q, want icon-c0", got)
	}
}
