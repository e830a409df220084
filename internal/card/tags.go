package card

import "strings"

// ParseTags splits comma-separated tag text into clean tags.
//
//	"lang, reading,,lang" -> [lang reading]
func ParseTags(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return CleanTags(strings.Split(text, ","))
}

// CleanTags trims each tag, drops empties and keeps the first of any duplicates.
// The result is never nil.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// JoinTags renders tags back into editable comma-separated text.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
