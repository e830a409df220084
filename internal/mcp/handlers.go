package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/app"
	"github.com/hpungsan/shelf/internal/card"
	"github.com/hpungsan/shelf/internal/cards"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/settings"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// Request types for each tool

// AddRequest represents the arguments for card_add.
type AddRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	TagText     string     `json:"tag_text,omitempty"`
	IconURL     string     `json:"icon_url,omitempty"`
	IconFile    string     `json:"icon_file,omitempty"`
	Icon        *card.Icon `json:"icon,omitempty"`
	ShowIcon    *bool      `json:"show_icon,omitempty"`

	PrefillFromURL       bool `json:"prefill_from_url,omitempty"`
	PrefillFromWikipedia bool `json:"prefill_from_wikipedia,omitempty"`
	VerifyIcon           bool `json:"verify_icon,omitempty"`
}

// UpdateRequest represents the arguments for card_update.
type UpdateRequest struct {
	ID          string     `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	TagText     *string    `json:"tag_text,omitempty"`
	IconURL     *string    `json:"icon_url,omitempty"`
	IconFile    *string    `json:"icon_file,omitempty"`
	Icon        *card.Icon `json:"icon,omitempty"`
	ShowIcon    *bool      `json:"show_icon,omitempty"`
}

// IDRequest carries a single card id.
type IDRequest struct {
	ID string `json:"id"`
}

// ArchiveRequest represents the arguments for card_archive.
type ArchiveRequest struct {
	ID       string `json:"id"`
	Archived *bool  `json:"archived,omitempty"`
}

// ListRequest represents the arguments for card_list.
type ListRequest struct {
	Query    string `json:"query,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Archived bool   `json:"archived,omitempty"`
	All      bool   `json:"all,omitempty"`
}

// ExportRequest represents the arguments for card_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for card_import.
type ImportRequest struct {
	Path  string          `json:"path,omitempty"`
	Cards json.RawMessage `json:"cards,omitempty"`
}

// SettingsUpdateRequest represents the arguments for settings_update.
type SettingsUpdateRequest struct {
	Title        *string          `json:"title,omitempty"`
	Theme        *string          `json:"theme,omitempty"`
	CustomColors *settings.Colors `json:"custom_colors,omitempty"`
	ViewMode     *string          `json:"view_mode,omitempty"`
	ShowArchived *bool            `json:"show_archived,omitempty"`
}

// SettingsResetRequest represents the arguments for settings_reset.
type SettingsResetRequest struct {
	Confirm bool `json:"confirm"`
}

// Output types

// AddOutput is the card_add result.
type AddOutput struct {
	Card    *card.Card        `json:"card"`
	Prefill app.PrefillResult `json:"prefill"`
}

// ListOutput is the card_list result.
type ListOutput struct {
	Cards []card.Card `json:"cards"`
	Count int         `json:"count"`
}

// TagsOutput is the card_tags result.
type TagsOutput struct {
	Tags   []string     `json:"tags"`
	Counts cards.Counts `json:"counts"`
}

// SettingsOutput is the settings_get and settings_update result.
type SettingsOutput struct {
	Settings *settings.Document `json:"settings"`
	Usage    any                `json:"usage,omitempty"`
}

// Handler implementations

// HandleAdd handles the card_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	in := cards.AddInput{
		Title:       input.Title,
		Description: input.Description,
		URL:         input.URL,
		Tags:        input.Tags,
		TagText:     input.TagText,
		IconURL:     input.IconURL,
		IconFile:    input.IconFile,
		Icon:        input.Icon,
		ShowIcon:    input.ShowIcon,
	}
	prefill := h.app.Prefill(ctx, &in, app.PrefillOptions{
		FromPage:      input.PrefillFromURL,
		FromWikipedia: input.PrefillFromWikipedia,
		VerifyIcon:    input.VerifyIcon,
	})

	c, err := h.app.Cards.Add(ctx, in)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(AddOutput{Card: c, Prefill: prefill})
}

// HandleUpdate handles the card_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidField("id", "is required")), nil
	}

	c, err := h.app.Cards.Update(ctx, input.ID, cards.UpdateInput{
		Title:       input.Title,
		Description: input.Description,
		URL:         input.URL,
		Tags:        input.Tags,
		TagText:     input.TagText,
		IconURL:     input.IconURL,
		IconFile:    input.IconFile,
		Icon:        input.Icon,
		ShowIcon:    input.ShowIcon,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleArchive handles the card_archive tool call.
func (h *Handlers) HandleArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	archived := true
	if input.Archived != nil {
		archived = *input.Archived
	}

	c, err := h.app.Cards.Archive(ctx, input.ID, archived)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleDelete handles the card_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.app.Cards.Remove(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

// HandleDuplicate handles the card_duplicate tool call.
func (h *Handlers) HandleDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	c, err := h.app.Cards.Duplicate(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleGet handles the card_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	c, err := h.app.Cards.Get(input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleList handles the card_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var list []card.Card
	if input.All {
		list = h.app.Cards.List()
	} else {
		list = h.app.Cards.Filter(card.Filter{
			Query:        input.Query,
			Tag:          input.Tag,
			ShowArchived: input.Archived,
		})
	}
	return successResult(ListOutput{Cards: list, Count: len(list)})
}

// HandleTags handles the card_tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(TagsOutput{
		Tags:   h.app.Cards.AllTags(),
		Counts: h.app.Cards.Counts(),
	})
}

// HandleExport handles the card_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := h.app.Cards.ExportFile(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleImport handles the card_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	hasInline := len(input.Cards) > 0 && string(input.Cards) != "null"
	switch {
	case input.Path != "" && hasInline:
		return errorResult(errors.NewInvalidRequest("provide either path or cards, not both")), nil
	case input.Path != "":
		out, err := h.app.Cards.ImportFile(ctx, input.Path)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(out)
	case hasInline:
		out, err := h.app.Cards.Import(ctx, input.Cards)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(out)
	default:
		return errorResult(errors.NewInvalidRequest("path or cards is required")), nil
	}
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := SettingsOutput{Settings: h.app.Settings.Current(ctx)}
	if usage, err := h.app.Settings.Usage(ctx); err == nil {
		out.Usage = usage
	}
	return successResult(out)
}

// HandleSettingsUpdate handles the settings_update tool call. Fields are
// saved in document order; the first failure stops the update.
func (h *Handlers) HandleSettingsUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Title == nil && input.Theme == nil && input.CustomColors == nil &&
		input.ViewMode == nil && input.ShowArchived == nil {
		return errorResult(errors.NewInvalidRequest("at least one setting must be provided")), nil
	}

	s := h.app.Settings
	steps := []func() error{}
	if input.Title != nil {
		steps = append(steps, func() error { return s.SaveTitle(ctx, *input.Title) })
	}
	if input.CustomColors != nil {
		steps = append(steps, func() error { return s.SaveCustomColors(ctx, *input.CustomColors) })
	}
	if input.Theme != nil {
		steps = append(steps, func() error { return s.SaveTheme(ctx, *input.Theme) })
	}
	if input.ViewMode != nil {
		steps = append(steps, func() error { return s.SaveViewMode(ctx, *input.ViewMode) })
	}
	if input.ShowArchived != nil {
		steps = append(steps, func() error { return s.SaveShowArchived(ctx, *input.ShowArchived) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errorResult(err), nil
		}
	}
	return successResult(SettingsOutput{Settings: s.Current(ctx)})
}

// HandleSettingsReset handles the settings_reset tool call.
func (h *Handlers) HandleSettingsReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsResetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewInvalidRequest("confirm must be true")), nil
	}
	if err := h.app.Settings.ResetAll(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(SettingsOutput{Settings: h.app.Settings.Current(ctx)})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// INTERNAL errors never carry details.
func errorResult(err error) *mcp.CallToolResult {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if sErr.Code != errors.ErrInternal && sErr.Details != nil {
		errorObj["details"] = sErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
