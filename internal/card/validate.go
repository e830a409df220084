package card

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/hpungsan/shelf/internal/errors"
)

// ValidateTitle trims title and rejects it when empty.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.NewInvalidField("title", "must not be empty")
	}
	return title, nil
}

// ValidateURL trims raw and checks it is an absolute http(s) URL.
// An empty string is allowed and means "no URL".
func ValidateURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !IsWebURL(raw) {
		return "", errors.NewInvalidField(field, "must be an absolute http(s) URL")
	}
	return raw, nil
}

// IsWebURL reports whether raw parses as an absolute http or https URL with a host.
func IsWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ValidateIconURL is ValidateURL that also accepts base64 image data URLs,
// the form uploaded icons are stored in.
func ValidateIconURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !IsWebURL(raw) && !IsImageDataURL(raw) {
		return "", errors.NewInvalidField(field, "must be an absolute http(s) URL or a data:image/*;base64 URL")
	}
	return raw, nil
}

// IsImageDataURL reports whether raw is a data:image/<type>;base64, URL with
// a non-empty, decodable payload.
func IsImageDataURL(raw string) bool {
	if len(raw) < len(dataImagePrefix) || !strings.EqualFold(raw[:len(dataImagePrefix)], dataImagePrefix) {
		return false
	}
	meta, payload, ok := strings.Cut(raw[len(dataImagePrefix):], ",")
	if !ok || payload == "" {
		return false
	}
	subtype, enc, ok := strings.Cut(meta, ";")
	if !ok || subtype == "" || !strings.EqualFold(enc, "base64") {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

const dataImagePrefix = "data:image/"
