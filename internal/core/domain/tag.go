package domain

import (
	"regexp"
	"strings"
)

// Tag labels a project
type Tag struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Color     string `json:"color" yaml:"color"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// TagPage is a single page of the tag listing
type TagPage struct {
	Items      []Tag   `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

var tagSeparator = regexp.MustCompile(`[,|\n]`)

// ParseTags turns free text into an ordered list of unique tags.
// Comma, pipe and newline separate entries. Duplicates are detected
// case-insensitively and the first spelling wins.
// "a, b\nB,,c" -> ["a", "b", "c"]
func ParseTags(input string) []string {
	seen := make(map[string]bool)
	var tags []string

	for _, part := range tagSeparator.Split(input, -1) {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	return tags
}
