// Package plaintext cleans plain text files and derives titles from file
// names. It is the fallback normaliser every loader ends with.
package plaintext

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Normalise returns a title derived from origin and the cleaned text.
func Normalise(content, origin string) (title, text string) {
	return TitleFromPath(origin), Clean(content)
}

// Clean normalises line endings, strips a byte order mark, control
// characters and trailing whitespace, and collapses runs of blank lines.
func Clean(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\f", "\n")

	content = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, content)

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// TitleFromPath extracts a human-readable title from a file path or URL.
func TitleFromPath(origin string) string {
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		return ""
	}

	// Get filename from path
	filename := filepath.Base(origin)
	if strings.Contains(origin, "://") {
		filename = path.Base(origin)
		if i := strings.IndexAny(filename, "?#"); i >= 0 {
			filename = filename[:i]
		}
	}

	// Remove the extension for a cleaner title
	if ext := filepath.Ext(filename); ext != "" && ext != filename {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return strings.Join(strings.Fields(filename), " ")
}
