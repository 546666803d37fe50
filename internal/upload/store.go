// Package upload owns the on-disk file storage for commission
// attachments. Files land in a staging area first and are renamed into
// place, so a crash mid-upload leaves either nothing visible or a
// complete file — never a half-written attachment a record points at.
package upload

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const stagingDir = ".staging"

type Store struct {
	Root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload staging dir: %w", err)
	}
	return &Store{Root: root}, nil
}

// SanitizeName makes a client-supplied filename safe for disk and URLs:
// path separators stripped, whitespace collapsed to dashes, the rest
// percent-escaped.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "-")
	return url.PathEscape(name)
}

// Save streams r to staging, then commits it under <code>/<name> with an
// atomic rename. Returns the path relative to the store root, which is
// what the commission record persists.
func (s *Store) Save(code, filename string, r io.Reader) (string, error) {
	name := SanitizeName(filename)
	if name == "" {
		return "", fmt.Errorf("empty filename")
	}

	tmpPath := filepath.Join(s.Root, stagingDir, uuid.NewString())
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(s.Root, code), 0755); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to create commission dir: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(code, name))
	if err := os.Rename(tmpPath, filepath.Join(s.Root, code, name)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit upload: %w", err)
	}

	return rel, nil
}

// Open returns the stored file for streaming to a download response.
func (s *Store) Open(rel string) (*os.File, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// Size returns the stored file's size in bytes.
func (s *Store) Size(rel string) (int64, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// resolve rejects anything that would escape the store root.
func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid file path: %q", rel)
	}
	return filepath.Join(s.Root, clean), nil
}

// FormatBytes renders a byte count for display, e.g. "1.5 MB".
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	sizes := []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	out := fmt.Sprintf("%.2f", value)
	out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	return out + " " + sizes[i]
}
