// Package files validates import/export paths and writes export files safely.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/errors"
)

// Mode says whether a path is about to be read or written.
type Mode int

const (
	ModeRead  Mode = iota // import
	ModeWrite             // export
)

// Extension sets accepted by the repositories.
var (
	CardExtensions     = []string{".json"}
	SettingsExtensions = []string{".json", ".yaml", ".yml"}
)

// Policy decides where import/export files may live.
type Policy struct {
	// ExportsDir is always allowed (ex: ~/.shelf/exports)
	ExportsDir string

	// AllowedPaths are extra absolute directories; relative entries are ignored
	AllowedPaths []string

	// AllowUnsafePaths skips the directory allowlist. Symlink checks still apply.
	AllowUnsafePaths bool
}

// NewPolicy builds a Policy rooted at dataDir from the files config section.
func NewPolicy(dataDir string, cfg config.FilesConfig) Policy {
	return Policy{
		ExportsDir:       filepath.Join(dataDir, "exports"),
		AllowedPaths:     cfg.AllowedPaths,
		AllowUnsafePaths: cfg.AllowUnsafePaths,
	}
}

// ValidatePath checks path for an import or export:
// no ".." components, an extension from exts, the file directly inside an
// allowed directory, and no symlinks at the parent or the file itself.
//
// Requiring the file to sit directly in an allowed directory leaves no
// intermediate component to swap for a symlink after validation; the final
// component is opened with O_NOFOLLOW.
func (p Policy) ValidatePath(path string, mode Mode, exts []string) error {
	if path == "" {
		return errors.NewInvalidField("path", "is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidField("path", "must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleaned))
	if !slices.Contains(exts, ext) {
		return errors.NewInvalidField("path", fmt.Sprintf("must have one of the extensions %s", strings.Join(exts, ", ")))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidField("path", fmt.Sprintf("invalid path: %v", err))
	}

	if !p.AllowUnsafePaths {
		allowedDirs, err := p.allowedDirs()
		if err != nil {
			return err
		}

		parentDir := filepath.Dir(absPath)
		if !slices.Contains(allowedDirs, filepath.Clean(parentDir)) {
			return errors.NewInvalidField("path",
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", allowedDirs))
		}

		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidField("path", "parent directory must not be a symlink")
		}
	}

	if mode == ModeRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}

	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidField("path", "must not be a symlink")
	}

	return nil
}

// allowedDirs returns absolute allowed directories with symlinked entries resolved.
func (p Policy) allowedDirs() ([]string, error) {
	dirs := make([]string, 0, len(p.AllowedPaths)+1)
	if p.ExportsDir != "" {
		dirs = append(dirs, p.ExportsDir)
	}
	for _, d := range p.AllowedPaths {
		if filepath.IsAbs(d) {
			dirs = append(dirs, d)
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

// DefaultPath returns <ExportsDir>/<name>-<timestamp><ext>.
func (p Policy) DefaultPath(name, ext string, now time.Time) string {
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(name), now.Format("2006-01-02T150405"), ext)
	return filepath.Join(p.ExportsDir, filename)
}

func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename makes s safe to embed in a file name.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		s = "unnamed"
	}
	return s
}
