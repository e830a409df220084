package card

import "strings"

// Filter selects cards for display.
type Filter struct {
	// Query is matched case-insensitively against title, description and tags
	Query string

	// Tag, when set, must be one of the card's tags exactly
	Tag string

	// ShowArchived shows only archived cards; otherwise only active ones
	ShowArchived bool
}

// Matches reports whether c passes f.
func (f Filter) Matches(c Card) bool {
	if c.IsArchived != f.ShowArchived {
		return false
	}
	if f.Tag != "" && !c.HasTag(f.Tag) {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Description), q) {
		return true
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Apply returns the cards passing f, preserving order.
func (f Filter) Apply(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}
