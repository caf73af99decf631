package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// frontmatterRegex matches YAML frontmatter between --- delimiters
	frontmatterRegex = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n?`)

	// Date formats accepted in the date/created fields. Zone-less values are UTC.
	dateFormats = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"02-01-2006",
		"02/01/2006",
	}
)

// Frontmatter holds the note fields a markdown file can declare.
type Frontmatter struct {
	Title *string
	// Date comes from "date", falling back to "created".
	Date *time.Time
	// Image is a path or file:// URI, relative to the markdown file.
	Image *string
	Extra map[string]interface{}
}

// noteFields are lifted out of the frontmatter; everything else lands in Extra.
var noteFields = map[string]bool{
	"title": true, "date": true, "created": true, "image": true,
}

// stringField returns a trimmed non-empty string value for key.
func stringField(fields map[string]interface{}, key string) *string {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return nil
	}
	return &s
}

// dateField accepts YAML timestamps and any string ParseDate understands.
func dateField(fields map[string]interface{}, key string) *time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return &v
	case string:
		if t, ok := ParseDate(v); ok {
			return &t
		}
	}
	return nil
}

// ParseDate tries each accepted date format in turn.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFrontmatter extracts and parses YAML frontmatter from content. Malformed
// YAML is treated as no frontmatter.
func ParseFrontmatter(content string) (*Frontmatter, string, error) {
	fm := &Frontmatter{
		Extra: make(map[string]interface{}),
	}

	content = normalizeNewlines(content)
	match := frontmatterRegex.FindStringSubmatch(content)
	if match == nil {
		return fm, content, nil
	}

	var fields map[string]interface{}
	if err := yaml.Unmarshal([]byte(match[1]), &fields); err != nil {
		return fm, content, nil
	}

	fm.Title = stringField(fields, "title")
	fm.Image = stringField(fields, "image")
	if fm.Date = dateField(fields, "date"); fm.Date == nil {
		fm.Date = dateField(fields, "created")
	}
	for k, v := range fields {
		if !noteFields[k] {
			fm.Extra[k] = v
		}
	}

	return fm, content[len(match[0]):], nil
}

// HasFrontmatter checks if content has YAML frontmatter
func HasFrontmatter(content string) bool {
	return frontmatterRegex.MatchString(normalizeNewlines(content))
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
