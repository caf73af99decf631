package store

import "time"

// DateLayout is the timestamp format of Note.Date (UTC, millisecond precision).
const DateLayout = "2006-01-02T15:04:05.000Z"

// Note is one record of the notes collection.
type Note struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	// ImageURI is the local locator the image was picked from. Display only.
	ImageURI *string `json:"imageUri,omitempty"`
	// ImageBase64 is a self-contained data URI ("data:image/png;base64,...").
	ImageBase64 *string `json:"imageBase64,omitempty"`
	Date        string  `json:"date"`
}

// HasImage reports whether the note carries an embeddable image payload.
func (n Note) HasImage() bool {
	return n.ImageBase64 != nil && *n.ImageBase64 != ""
}

// Time parses Date. ok is false when the date is missing or malformed.
func (n Note) Time() (t time.Time, ok bool) {
	t, err := time.Parse(time.RFC3339Nano, n.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NotePatch is a partial update. Nil fields are left untouched. ID is accepted
// so callers can pass a full record, but it is never applied.
type NotePatch struct {
	ID          *int64
	Title       *string
	Content     *string
	ImageURI    *string
	ImageBase64 *string
	Date        *string
}

// PatchFrom builds a patch that overwrites every field of n.
func PatchFrom(n Note) NotePatch {
	p := NotePatch{
		ID:      &n.ID,
		Title:   &n.Title,
		Content: &n.Content,
		Date:    &n.Date,
	}
	empty := ""
	p.ImageURI, p.ImageBase64 = &empty, &empty
	if n.ImageURI != nil {
		p.ImageURI = n.ImageURI
	}
	if n.ImageBase64 != nil {
		p.ImageBase64 = n.ImageBase64
	}
	return p
}

// apply merges p over n. An empty image field clears it.
func (n Note) apply(p NotePatch) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.ImageURI != nil {
		n.ImageURI = optional(*p.ImageURI)
	}
	if p.ImageBase64 != nil {
		n.ImageBase64 = optional(*p.ImageBase64)
	}
	if p.Date != nil {
		n.Date = *p.Date
	}
	return n
}

// Credential is one record of the users collection. The password is stored as
// given; there is no hashing.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
