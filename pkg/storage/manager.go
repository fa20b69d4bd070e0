package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager owns the export output directory and writes page files below it
type Manager struct {
	outputDir  string
	savedPages int
	savedBytes int64
	mu         sync.RWMutex
}

// NewManager creates the output directory (recursively) if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// DocumentDir creates the folder for a document title and returns its path.
// The title is sanitized; fallbackID names the folder when nothing usable
// is left of the title.
func (m *Manager) DocumentDir(title, fallbackID string) (string, error) {
	name, err := FolderName(title, fallbackID)
	if err != nil {
		return "", err
	}
	return m.MakeDir(name)
}

// FolderName returns the sanitized folder name for a document title, or the
// sanitized fallbackID when nothing usable is left of the title.
func FolderName(title, fallbackID string) (string, error) {
	name := SanitizeName(title)
	if name == "" {
		name = SanitizeName(fallbackID)
	}
	if name == "" {
		return "", fmt.Errorf("no usable folder name for document %q", fallbackID)
	}
	return name, nil
}

// MakeDir creates the folder name directly below the output directory
func (m *Manager) MakeDir(name string) (string, error) {
	dir := filepath.Join(m.outputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	return dir, nil
}

// PageFileName returns "[NN] - {title}.{ext}" for a 1-based page number.
// The extension is lower-cased and an unusable title becomes "Page NN".
func PageFileName(pageNumber int, title, extension string) string {
	name := SanitizeName(title)
	if name == "" {
		name = fmt.Sprintf("Page %02d", pageNumber)
	}
	return fmt.Sprintf("[%02d] - %s.%s", pageNumber, name, strings.ToLower(extension))
}

// SanitizeName makes a title safe to use as a single path component.
// Separators, characters reserved on Windows and control characters become
// "_"; leading and trailing dots and spaces are trimmed. "" is returned when
// nothing usable remains.
func SanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\<>:"|?*`, r):
			return '_'
		default:
			return r
		}
	}, name)

	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "." || cleaned == ".." {
		return ""
	}
	return cleaned
}

// SavePage writes r to dir/fileName, replacing any existing file. Data goes
// to a temporary file first and is renamed into place, so a failed write
// never leaves a partial page behind.
func (m *Manager) SavePage(r io.Reader, dir, fileName string) (string, int64, error) {
	filename := filepath.Join(dir, fileName)

	out, err := os.CreateTemp(dir, ".page-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	written, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", 0, fmt.Errorf("failed to save page data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return "", 0, fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.savedPages++
	m.savedBytes += written
	m.mu.Unlock()

	return filename, written, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of pages written by this manager
func (m *Manager) GetSavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.savedPages
}

// GetSavedBytes returns the number of bytes written by this manager
func (m *Manager) GetSavedBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.savedBytes
}
