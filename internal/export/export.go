// Package export renders notes as a printable HTML document, one page per note.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/vonshlovens/notestore/internal/imaging"
	"github.com/vonshlovens/notestore/internal/kv"
	"github.com/vonshlovens/notestore/internal/store"
)

// ErrNothingToExport is returned when the note selection is empty.
var ErrNothingToExport = errors.New("no notes to export")

// Options controls rendering.
type Options struct {
	// Locale is "id" (default) or "en".
	Locale string
	// Title is the document title. Defaults to "Notes".
	Title string
	// ID identifies the document. A uuid is generated when empty.
	ID string
	// Location is the zone dates are shown in. Defaults to time.Local.
	Location *time.Location
	// Progress receives a progress bar when set.
	Progress io.Writer
	Logger   *slog.Logger
}

type page struct {
	Title    string
	Date     string
	// ImageSrc is the whole src attribute so the payload is written unescaped.
	ImageSrc template.HTMLAttr
	HasImage bool
	Content  string
	Footer   string
}

type document struct {
	Lang  string
	ID    string
	Title string
	Pages []page
}

var docTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0, maximum-scale=1.0, user-scalable=no" />
    <meta name="notestore-export-id" content="{{.ID}}" />
    <title>{{.Title}}</title>
    <style>
      body { font-family: Arial, sans-serif; margin: 0; padding: 0; }
      .note-page { padding: 30px; page-break-after: always; }
      .note-page:last-child { page-break-after: auto; }
      .note-header { text-align: center; margin-bottom: 25px; }
      .note-header h1 { margin: 0 0 8px 0; color: #333; font-size: 28px; }
      .note-date { margin: 0; color: #888; font-size: 13px; }
      .note-image { text-align: center; margin-bottom: 20px; }
      .note-image img { max-width: 100%; max-height: 350px; width: auto; height: auto; border-radius: 8px; }
      .note-content { font-size: 15px; line-height: 1.6; color: #333; white-space: pre-wrap; padding: 15px; border: 1px solid #ddd; border-radius: 8px; background-color: #fafafa; }
      .note-footer { text-align: center; margin-top: 20px; color: #999; font-size: 11px; }
    </style>
  </head>
  <body>
{{- range .Pages}}
    <div class="note-page">
      <div class="note-header">
        <h1>{{.Title}}</h1>
        <p class="note-date">{{.Date}}</p>
      </div>
{{- if .HasImage}}
      <div class="note-image">
        <img {{.ImageSrc}} />
      </div>
{{- end}}
      <div class="note-content">{{.Content}}</div>
      <div class="note-footer">{{.Footer}}</div>
    </div>
{{- end}}
  </body>
</html>
`))

// Render writes the document for notes to w. Titles and content are escaped;
// image payloads are embedded as-is when they are valid image data URIs.
func Render(w io.Writer, notes []store.Note, opts Options) error {
	if len(notes) == 0 {
		return ErrNothingToExport
	}
	loc, err := lookupLocale(opts.Locale)
	if err != nil {
		return err
	}
	opts = withDefaults(opts)

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(notes),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Rendering notes"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
		)
	}

	doc := document{
		Lang:  loc.lang,
		ID:    opts.ID,
		Title: opts.Title,
		Pages: make([]page, 0, len(notes)),
	}
	for i, n := range notes {
		p := page{
			Title:   n.Title,
			Date:    displayDate(n, loc, opts.Location),
			Content: n.Content,
			Footer:  loc.footer(i+1, len(notes)),
		}
		if n.HasImage() {
			// A parsed data URI holds only token and base64 characters.
			if imaging.IsImageDataURI(*n.ImageBase64) {
				p.ImageSrc = template.HTMLAttr(`src="` + *n.ImageBase64 + `"`)
				p.HasImage = true
			} else {
				opts.Logger.Warn("skipping invalid image payload", "id", n.ID)
			}
		}
		doc.Pages = append(doc.Pages, p)

		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if err := docTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("failed to render export: %w", err)
	}
	opts.Logger.Debug("export rendered", "id", opts.ID, "pages", len(doc.Pages), "locale", loc.lang)
	return nil
}

// WriteFile renders notes and writes the document atomically. When path is
// empty or an existing directory, the file is named after the document id.
// The path written is returned.
func WriteFile(path string, notes []store.Note, opts Options) (string, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	if path == "" {
		path = DefaultFileName(opts.ID)
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName(opts.ID))
	}

	var buf bytes.Buffer
	if err := Render(&buf, notes, opts); err != nil {
		return "", err
	}
	if err := kv.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// DefaultFileName is the file name used for an export with the given id.
func DefaultFileName(id string) string {
	return "notes-" + id + ".html"
}

func withDefaults(opts Options) Options {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Title == "" {
		opts.Title = "Notes"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// displayDate formats the note date, or shows it raw when it does not parse.
func displayDate(n store.Note, l locale, tz *time.Location) string {
	t, ok := n.Time()
	if !ok {
		return n.Date
	}
	return l.formatDate(t.In(tz))
}
