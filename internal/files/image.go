package files

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hpungsan/shelf/internal/errors"
)

// ImageExtensions are accepted for icon files.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico"}

// MaxIconBytes caps an icon file. The encoded icon is stored inline in every
// export of the card.
const MaxIconBytes = 1 << 20

// ImageDataURL reads a validated image file and encodes it as a
// data:image/<type>;base64 URL.
func ImageDataURL(path string) (string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.NewInvalidField("icon_file", "is empty")
	}
	if len(data) > MaxIconBytes {
		return "", errors.NewInvalidField("icon_file", fmt.Sprintf("must be at most %d bytes", MaxIconBytes))
	}
	mediaType, ok := imageMediaType(path, data)
	if !ok {
		return "", errors.NewInvalidField("icon_file", "is not an image")
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func imageMediaType(path string, data []byte) (string, bool) {
	sniffed, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	// SVG is XML text and never sniffs as an image.
	if strings.EqualFold(filepath.Ext(path), ".svg") && bytes.Contains(data, []byte("<svg")) {
		return "image/svg+xml", true
	}
	return "", false
}
