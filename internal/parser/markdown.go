package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// headingRegex matches a level-one ATX heading line
	headingRegex = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)

	// imageLinkRegex matches ![alt](target "title") and ![alt](<target with spaces>)
	imageLinkRegex = regexp.MustCompile(`!\[[^\]]*\]\(\s*(?:<([^>]+)>|([^)\s]+))[^)]*\)`)

	// imageEmbedRegex matches ![[photo.png]] and ![[photo.png|300]]
	imageEmbedRegex = regexp.MustCompile(`!\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)

	// codeBlockRegex matches fenced code blocks
	codeBlockRegex = regexp.MustCompile("(?s)```.*?```")
)

// ParsedNote is a markdown file reduced to note fields.
type ParsedNote struct {
	Frontmatter *Frontmatter
	Title       string
	// Body is the content after frontmatter, with a heading used as title removed.
	Body string
	// Date is zero when the file declares none.
	Date time.Time
	// Image is the frontmatter image, else the first embedded image. May be empty.
	Image      string
	RawContent string
}

// Parser handles parsing of markdown notes
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a markdown file
func (p *Parser) ParseFile(path string) (*ParsedNote, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return p.ParseContent(string(content), path)
}

// ParseContent parses markdown content. The title comes from frontmatter, then
// the first "# " heading, then the file name.
func (p *Parser) ParseContent(content string, path string) (*ParsedNote, error) {
	fm, body, err := ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	note := &ParsedNote{
		Frontmatter: fm,
		RawContent:  content,
	}

	switch {
	case fm.Title != nil:
		note.Title = *fm.Title
	default:
		if title, rest, ok := takeHeading(body); ok {
			note.Title = title
			body = rest
		} else {
			filename := filepath.Base(path)
			note.Title = strings.TrimSuffix(filename, filepath.Ext(filename))
		}
	}
	note.Body = strings.TrimSpace(body)

	if fm.Date != nil {
		note.Date = *fm.Date
	}

	if fm.Image != nil {
		note.Image = *fm.Image
	} else {
		note.Image = firstImage(body)
	}

	return note, nil
}

// takeHeading removes the first level-one heading when it is the first
// non-blank line of body.
func takeHeading(body string) (title, rest string, ok bool) {
	trimmed := strings.TrimLeft(body, " \t\n")
	loc := headingRegex.FindStringSubmatchIndex(trimmed)
	if loc == nil || loc[0] != 0 {
		return "", body, false
	}
	title = strings.TrimSpace(trimmed[loc[2]:loc[3]])
	if title == "" {
		return "", body, false
	}
	return title, trimmed[loc[1]:], true
}

// firstImage returns the target of the first image reference outside code blocks.
func firstImage(body string) string {
	clean := codeBlockRegex.ReplaceAllString(body, "")

	best, target := -1, ""
	if m := imageLinkRegex.FindStringSubmatchIndex(clean); m != nil {
		best = m[0]
		if m[2] >= 0 {
			target = clean[m[2]:m[3]]
		} else {
			target = clean[m[4]:m[5]]
		}
	}
	if m := imageEmbedRegex.FindStringSubmatchIndex(clean); m != nil && (best == -1 || m[0] < best) {
		target = clean[m[2]:m[3]]
	}
	return strings.TrimSpace(target)
}

// GetFileTimestamps returns the file's modification time, used when a note
// declares no date.
func GetFileTimestamps(path string) (modified time.Time, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// IsValidUTF8 checks if content is valid UTF-8
func IsValidUTF8(content string) bool {
	return utf8.ValidString(content)
}
