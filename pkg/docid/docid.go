// Package docid parses document ids from command-line values and id files.
package docid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Normalize strips an optional "#" comment and surrounding whitespace. It
// reports false when nothing is left.
func Normalize(raw string) (string, bool) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	id := strings.TrimSpace(raw)
	return id, id != ""
}

// ParseList splits a comma-separated list of ids
func ParseList(list string) []string {
	var ids []string
	for _, part := range strings.Split(list, ",") {
		if id, ok := Normalize(part); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Read returns one id per line of r. Blank and comment-only lines are skipped.
func Read(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if id, ok := Normalize(scanner.Text()); ok {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ids: %w", err)
	}
	return ids, nil
}

// ReadFile reads ids from a file, one per line
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Dedupe drops repeated ids, keeping the first occurrence of each
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
