package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/settings"
)

var iconSchema = map[string]any{
	"type":   map[string]any{"type": "string", "enum": []string{"letter", "image"}},
	"letter": map[string]any{"type": "string"},
	"color":  map[string]any{"type": "string"},
	"url":    map[string]any{"type": "string"},
}

var colorsSchema = map[string]any{
	"primary":       map[string]any{"type": "string"},
	"background":    map[string]any{"type": "string"},
	"cardBg":        map[string]any{"type": "string"},
	"textPrimary":   map[string]any{"type": "string"},
	"textSecondary": map[string]any{"type": "string"},
	"border":        map[string]any{"type": "string"},
}

var addToolDef = mcp.NewTool("card_add",
	mcp.WithDescription("Add a bookmark card. Title is required unless prefill_from_url finds one. "+
		"Without an icon a coloured letter icon is generated from the title."),
	mcp.WithString("title", mcp.Description("Card title")),
	mcp.WithString("description", mcp.Description("Free text, rendered as markdown in the web view")),
	mcp.WithString("url", mcp.Description("http(s) link the card points to")),
	mcp.WithArray("tags", mcp.Description("Tags; trimmed and de-duplicated"), mcp.WithStringItems()),
	mcp.WithString("tag_text", mcp.Description("Comma-separated tags, used when tags is absent")),
	mcp.WithString("icon_url", mcp.Description("Image URL for the card icon")),
	mcp.WithString("icon_file", mcp.Description("Path to a local image (in the exports dir or an allowed path), stored inline as a data URL")),
	mcp.WithObject("icon", mcp.Description("Explicit icon"), mcp.Properties(iconSchema)),
	mcp.WithBoolean("show_icon", mcp.Description("Show the icon (default true)")),
	mcp.WithBoolean("prefill_from_url", mcp.Description("Fill empty title/description/icon from the page at url")),
	mcp.WithBoolean("prefill_from_wikipedia", mcp.Description("Fill empty description/url/icon from Wikipedia by title")),
	mcp.WithBoolean("verify_icon", mcp.Description("Fall back to a letter icon when icon_url is not a reachable image")),
)

var updateToolDef = mcp.NewTool("card_update",
	mcp.WithDescription("Edit a card. Only provided fields change; icon_url \"\" switches back to a letter icon."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("description", mcp.Description("New description")),
	mcp.WithString("url", mcp.Description("New URL; empty clears it")),
	mcp.WithArray("tags", mcp.Description("Replacement tags"), mcp.WithStringItems()),
	mcp.WithString("tag_text", mcp.Description("Replacement comma-separated tags")),
	mcp.WithString("icon_url", mcp.Description("New icon image URL")),
	mcp.WithString("icon_file", mcp.Description("Path to a local image stored inline as the new icon")),
	mcp.WithObject("icon", mcp.Description("Explicit icon"), mcp.Properties(iconSchema)),
	mcp.WithBoolean("show_icon", mcp.Description("Show or hide the icon")),
)

var archiveToolDef = mcp.NewTool("card_archive",
	mcp.WithDescription("Archive or restore a card."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
	mcp.WithBoolean("archived", mcp.Description("true to archive (default), false to restore")),
)

var deleteToolDef = mcp.NewTool("card_delete",
	mcp.WithDescription("Permanently remove a card."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var duplicateToolDef = mcp.NewTool("card_duplicate",
	mcp.WithDescription("Copy a card. The copy gets a new id, \" (Copy)\" appended to its title and is not archived."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
)

var getToolDef = mcp.NewTool("card_get",
	mcp.WithDescription("Fetch one card by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("card_list",
	mcp.WithDescription("List cards. query matches title, description and tags case-insensitively; "+
		"tag must match exactly. archived selects the archived or the active set."),
	mcp.WithString("query", mcp.Description("Search text")),
	mcp.WithString("tag", mcp.Description("Exact tag")),
	mcp.WithBoolean("archived", mcp.Description("List archived cards instead of active ones")),
	mcp.WithBoolean("all", mcp.Description("Ignore filters and return every card")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var tagsToolDef = mcp.NewTool("card_tags",
	mcp.WithDescription("All distinct tags across cards in first-seen order, plus card counts."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("card_export",
	mcp.WithDescription("Export every card as a pretty-printed JSON array. "+
		"Without path the file goes to the exports directory."),
	mcp.WithString("path", mcp.Description("Destination .json file")),
)

var importToolDef = mcp.NewTool("card_import",
	mcp.WithDescription("Replace the whole collection with a JSON array of cards, from path or inline cards. "+
		"Any invalid entry rejects the import and leaves the collection untouched."),
	mcp.WithString("path", mcp.Description("Source .json file")),
	mcp.WithArray("cards", mcp.Description("Inline cards array"), mcp.Items(map[string]any{"type": "object"})),
	mcp.WithDestructiveHintAnnotation(true),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Current settings and storage usage."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var settingsUpdateToolDef = mcp.NewTool("settings_update",
	mcp.WithDescription("Change one or more settings."),
	mcp.WithString("title", mcp.Description("App title")),
	mcp.WithString("theme", mcp.Description("Theme"), mcp.Enum(settings.Themes...)),
	mcp.WithObject("custom_colors", mcp.Description("Custom theme colours; every field required"), mcp.Properties(colorsSchema)),
	mcp.WithString("view_mode", mcp.Description("Layout: "+strings.Join(settings.ViewModes, ", ")), mcp.Enum(settings.ViewModes...)),
	mcp.WithBoolean("show_archived", mcp.Description("Show archived cards in the view")),
)

var settingsResetToolDef = mcp.NewTool("settings_reset",
	mcp.WithDescription("Restore default settings and drop custom colours. Cards are not affected."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)
