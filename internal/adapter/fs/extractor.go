package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resumematch/internal/domain"
)

// UnsupportedFormatError names the file extension no extractor handles.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported format: file has no extension"
	}
	return fmt.Sprintf("unsupported format %q", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return domain.ErrUnsupportedFormat
}

var textExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// TextExtractor reads plain text and markdown resumes.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract returns the file content with invalid UTF-8 replaced. Empty files
// are rejected so they fail before any other ingestion work.
func (TextExtractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !textExtensions[ext] {
		return "", &UnsupportedFormatError{Ext: ext}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text := strings.ToValidUTF8(string(data), "�")
	text = strings.TrimPrefix(text, "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrValidation, path)
	}
	return text, nil
}
