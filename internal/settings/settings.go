// Package settings stores user preferences, one key per setting.
package settings

import (
	"slices"
	"strings"

	"github.com/hpungsan/shelf/internal/errors"
)

// Storage keys
const (
	KeyTheme        = "cardManager_theme"
	KeyCustomColors = "cardManager_customColors"
	KeyViewMode     = "cardManager_viewMode"
	KeyShowArchived = "cardManager_showArchived"
	KeyTitle        = "cardManager_title"

	// KeyPrefix is shared by every key the app writes, cards included.
	KeyPrefix = "cardManager_"
)

// Defaults
const (
	DefaultTheme        = "light-theme"
	DefaultViewMode     = "grid"
	DefaultShowArchived = false
	DefaultTitle        = "My Cards"
)

// CustomTheme selects the user's custom colours.
const CustomTheme = "custom-theme"

// Themes lists the accepted theme ids.
var Themes = []string{
	"light-theme",
	"dark-theme",
	"sunset-theme",
	"ocean-theme",
	"forest-theme",
	CustomTheme,
}

// ViewModes lists the accepted card layouts.
var ViewModes = []string{"grid", "list", "compact"}

// Colors is the palette of the custom theme.
type Colors struct {
	Primary       string `json:"primary"       yaml:"primary"`
	Background    string `json:"background"    yaml:"background"`
	CardBg        string `json:"cardBg"        yaml:"cardBg"`
	TextPrimary   string `json:"textPrimary"   yaml:"textPrimary"`
	TextSecondary string `json:"textSecondary" yaml:"textSecondary"`
	Border        string `json:"border"        yaml:"border"`
}

// DefaultColors seeds the custom theme editor.
var DefaultColors = Colors{
	Primary:       "#6c5ce7",
	Background:    "#f5f6fa",
	CardBg:        "#ffffff",
	TextPrimary:   "#2d3436",
	TextSecondary: "#636e72",
	Border:        "#dfe6e9",
}

// Validate requires every colour to be set.
func (c Colors) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"primary", c.Primary},
		{"background", c.Background},
		{"cardBg", c.CardBg},
		{"textPrimary", c.TextPrimary},
		{"textSecondary", c.TextSecondary},
		{"border", c.Border},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return errors.NewInvalidField("customThemeColors."+f.name, "must not be empty")
		}
	}
	return nil
}

// Document is every setting in one object, as exported and imported.
type Document struct {
	Title             string  `json:"title"             yaml:"title"`
	Theme             string  `json:"theme"             yaml:"theme"`
	CustomThemeColors *Colors `json:"customThemeColors" yaml:"customThemeColors"`
	ViewMode          string  `json:"viewMode"          yaml:"viewMode"`
	ShowArchived      bool    `json:"showArchived"      yaml:"showArchived"`
}

// Defaults returns the document ResetAll restores.
func Defaults() Document {
	return Document{
		Title:        DefaultTitle,
		Theme:        DefaultTheme,
		ViewMode:     DefaultViewMode,
		ShowArchived: DefaultShowArchived,
	}
}

// ValidateTheme rejects unknown theme ids.
func ValidateTheme(theme string) error {
	if !slices.Contains(Themes, theme) {
		return errors.NewInvalidField("theme", "must be one of "+strings.Join(Themes, ", "))
	}
	return nil
}

// ValidateViewMode rejects unknown layouts.
func ValidateViewMode(mode string) error {
	if !slices.Contains(ViewModes, mode) {
		return errors.NewInvalidField("viewMode", "must be one of "+strings.Join(ViewModes, ", "))
	}
	return nil
}

// ThemeLabel is the theme id without its "-theme" suffix (ex: "dark").
func ThemeLabel(theme string) string {
	return strings.TrimSuffix(theme, "-theme")
}
