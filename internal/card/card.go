package card

import (
	"encoding/json"
	"time"
)

// Card is a single bookmark entry.
type Card struct {
	// ID is a UUID assigned at creation; never changes
	ID string `json:"id"`

	// Title is required and non-empty after trimming
	Title string `json:"title"`

	// Description is free text, may be empty
	Description string `json:"description"`

	// Tags are unique per card and never empty strings
	Tags []string `json:"tags"`

	Icon Icon `json:"icon"`

	// URL is optional; empty means none
	URL string `json:"url"`

	// ShowIcon controls whether an image icon is displayed. Defaults to true.
	ShowIcon bool `json:"showIcon"`

	IsArchived bool `json:"isArchived"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of c.
func (c Card) Clone() Card {
	out := c
	out.Tags = append([]string{}, c.Tags...)
	return out
}

// DisplayIcon returns the icon a front end should draw. Cards with ShowIcon
// off, or without any stored icon, fall back to a stable letter icon.
func (c Card) DisplayIcon() Icon {
	if !c.ShowIcon || c.Icon.Type == "" {
		return StableLetterIcon(c.Title)
	}
	return c.Icon
}

// HasTag reports whether c carries tag exactly.
func (c Card) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// cardJSON mirrors Card with ShowIcon optional so a missing field decodes as true.
type cardJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Icon        Icon      `json:"icon"`
	URL         string    `json:"url"`
	ShowIcon    *bool     `json:"showIcon"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarshalJSON keeps tags as [] rather than null.
func (c Card) MarshalJSON() ([]byte, error) {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	show := c.ShowIcon
	return json.Marshal(cardJSON{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Tags:        tags,
		Icon:        c.Icon,
		URL:         c.URL,
		ShowIcon:    &show,
		IsArchived:  c.IsArchived,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	})
}

// UnmarshalJSON defaults ShowIcon to true and Tags to an empty slice.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Card{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Tags:        raw.Tags,
		Icon:        raw.Icon,
		URL:         raw.URL,
		ShowIcon:    raw.ShowIcon == nil || *raw.ShowIcon,
		IsArchived:  raw.IsArchived,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return nil
}
