package card

import (
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Icon types
const (
	IconLetter = "letter"
	IconImage  = "image"
)

// Palette holds the colours letter icons are drawn from.
var Palette = []string{
	"#ff6b6b",
	"#4ecdc4",
	"#ff9f43",
	"#6c5ce7",
	"#fdcb6e",
	"#0984e3",
	"#00b894",
	"#e84393",
}

// Icon is either a letter on a coloured tile or an image URL.
// Letter and Color are set for letter icons; URL for image icons.
type Icon struct {
	Type   string `json:"type"`
	Letter string `json:"letter,omitempty"`
	Color  string `json:"color,omitempty"`
	URL    string `json:"url,omitempty"`
}

// IsLetter reports whether i is a letter icon.
func (i Icon) IsLetter() bool { return i.Type == IconLetter }

// IsImage reports whether i is an image icon.
func (i Icon) IsImage() bool { return i.Type == IconImage }

// ImageIcon returns an image icon for url.
func ImageIcon(url string) Icon {
	return Icon{Type: IconImage, URL: url}
}

// Letter returns the first rune of the trimmed title, upper-cased, or "?"
// when the title is blank.
func Letter(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r))
}

// LetterIcon builds a letter icon with a colour picked from rng.
func LetterIcon(title string, rng *rand.Rand) Icon {
	return Icon{
		Type:   IconLetter,
		Letter: Letter(title),
		Color:  Palette[rng.IntN(len(Palette))],
	}
}

// StableLetterIcon builds a letter icon whose colour is derived from the title,
// so the same title always renders the same tile.
func StableLetterIcon(title string) Icon {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	return Icon{
		Type:   IconLetter,
		Letter: Letter(title),
		Color:  Palette[h.Sum32()%uint32(len(Palette))],
	}
}

// InPalette reports whether color is one of the letter-icon colours.
func InPalette(color string) bool {
	for _, p := range Palette {
		if p == color {
			return true
		}
	}
	return false
}
