// Package imaging turns image locators into self-contained data URIs.
package imaging

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotImage is returned when the bytes are not a recognised image format.
	ErrNotImage = errors.New("content is not an image")
	// ErrInvalidDataURI is returned by ParseDataURI for malformed input.
	ErrInvalidDataURI = errors.New("invalid data URI")
)

// Encoder reads images through a Reader and encodes them as data URIs.
type Encoder struct {
	reader Reader
	logger *slog.Logger
}

// NewEncoder creates an encoder. A nil logger uses slog.Default().
func NewEncoder(r Reader, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{reader: r, logger: logger}
}

// Encode returns the data URI for locator. Any failure is logged as a warning
// and reported as ok == false, so the caller can save the note without an image.
func (e *Encoder) Encode(ctx context.Context, locator string) (uri string, ok bool) {
	uri, err := e.EncodeStrict(ctx, locator)
	if err != nil {
		e.logger.Warn("image encoding failed, continuing without image",
			"locator", locator,
			"error", err)
		return "", false
	}
	return uri, true
}

// EncodeStrict is Encode with the error returned. A locator that already is an
// image data URI is passed through unchanged.
func (e *Encoder) EncodeStrict(ctx context.Context, locator string) (string, error) {
	if strings.HasPrefix(locator, "data:") {
		if !IsImageDataURI(locator) {
			return "", fmt.Errorf("data URI: %w", ErrNotImage)
		}
		return locator, nil
	}

	data, err := e.reader.Read(ctx, locator)
	if err != nil {
		return "", err
	}

	uri, err := EncodeBytes(data)
	if err != nil {
		return "", err
	}
	e.logger.Debug("image encoded", "locator", locator, "bytes", len(data), "uri_length", len(uri))
	return uri, nil
}

// EncodeBytes sniffs the MIME type of data and returns
// "data:<mime>;base64,<payload>".
func EncodeBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %w", ErrNotImage)
	}
	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("detected %s: %w", mime, ErrNotImage)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// mediaTypeRegex accepts type/subtype plus attribute=value parameters made of
// token characters only.
var mediaTypeRegex = regexp.MustCompile(`^[A-Za-z0-9!#$^_.+-]+/[A-Za-z0-9!#$^_.+-]+(;[A-Za-z0-9!#$^_.+-]+=[A-Za-z0-9!#$^_.+-]+)*$`)

// ParseDataURI splits a base64 data URI into its MIME type and decoded bytes.
// Media type parameters other than base64 are dropped. The media type may only
// hold token characters, so a parsed URI never contains quotes or markup.
func ParseDataURI(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("missing data: prefix: %w", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("missing payload separator: %w", ErrInvalidDataURI)
	}
	meta, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("only base64 payloads are supported: %w", ErrInvalidDataURI)
	}
	if !mediaTypeRegex.MatchString(meta) {
		return "", nil, fmt.Errorf("malformed media type %q: %w", meta, ErrInvalidDataURI)
	}
	mime, _, _ = strings.Cut(meta, ";")

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mime, data, nil
}

// IsImageDataURI reports whether s parses as a base64 data URI with an image
// media type.
func IsImageDataURI(s string) bool {
	mime, _, err := ParseDataURI(s)
	return err == nil && strings.HasPrefix(mime, "image/")
}
