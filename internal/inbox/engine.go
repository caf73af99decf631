// Package inbox imports markdown files from a directory as notes and keeps
// them in step with later edits and deletions.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vonshlovens/notestore/internal/config"
	"github.com/vonshlovens/notestore/internal/imaging"
	"github.com/vonshlovens/notestore/internal/kv"
	"github.com/vonshlovens/notestore/internal/parser"
	"github.com/vonshlovens/notestore/internal/store"
	"github.com/vonshlovens/notestore/internal/watcher"
)

// ErrNoInbox is returned by operations that need an inbox directory when none
// is configured.
var ErrNoInbox = errors.New("inbox path not configured")

// Engine handles markdown import
type Engine struct {
	root          string
	notes         *store.NoteRepository
	state         *StateTracker
	parser        *parser.Parser
	images        *imaging.FileReader
	filter        watcher.Filter
	retryAttempts int

	mu         sync.Mutex
	retryQueue map[string]int // path -> retry count
	lastID     int64

	clock    func() time.Time
	progress io.Writer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress sets where FullScan draws its progress bars. Nil disables them.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

// WithClock sets the time source for note ids and import times.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates an engine importing cfg.Inbox.Path into the notes
// collection of s. Import state is kept in s under StateKey.
func NewEngine(ctx context.Context, s kv.Store, cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		root:          cfg.Inbox.Path,
		parser:        parser.NewParser(),
		images:        imaging.NewFileReader(cfg.Images),
		filter:        watcher.Filter{Ignore: cfg.Inbox.IgnorePatterns, Include: cfg.Inbox.IncludePatterns},
		retryAttempts: cfg.Inbox.RetryAttempts,
		retryQueue:    make(map[string]int),
		clock:         time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := LoadStateTracker(ctx, s, e.root, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create state tracker: %w", err)
	}
	e.state = state
	e.lastID = state.MaxNoteID()
	e.notes = store.NewNoteRepository(s, store.WithLogger(e.logger), store.WithClock(e.clock))
	return e, nil
}

// HandleEvent applies one watcher event.
func (e *Engine) HandleEvent(ctx context.Context, ev watcher.FileEvent) error {
	switch ev.EventType {
	case watcher.EventDelete:
		return e.RemoveFile(ctx, ev.Path)
	case watcher.EventCreate, watcher.EventModify:
		return e.ImportFile(ctx, ev.Path)
	default:
		return nil
	}
}

// ImportFile imports the inbox file at relPath. A file whose content is
// unchanged since its last import is skipped; a changed file updates the note
// it produced before.
func (e *Engine) ImportFile(ctx context.Context, relPath string) error {
	if e.root == "" {
		return ErrNoInbox
	}
	relPath = filepath.ToSlash(relPath)
	absPath := filepath.Join(e.root, filepath.FromSlash(relPath))

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // removed before we got to it
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() || !e.filter.Match(relPath) {
		return nil
	}

	src, err := readSource(absPath)
	if err != nil {
		return err
	}
	hash := src.hash
	if !e.state.NeedsImport(relPath, hash) {
		e.logger.Debug("file unchanged, skipping", "path", relPath)
		return nil
	}

	note, err := e.buildNote(ctx, absPath, info, src.content)
	if err != nil {
		return err
	}

	prev := e.state.Get(relPath)
	updated := false
	if prev != nil && prev.NoteID != 0 {
		note.ID = prev.NoteID
		updated, err = e.notes.UpdateByID(ctx, prev.NoteID, store.PatchFrom(note))
		if err != nil {
			return err
		}
	}
	if !updated {
		note.ID = e.nextID()
		if note, err = e.notes.Insert(ctx, note); err != nil {
			return err
		}
	}

	e.state.Set(relPath, &FileState{
		Hash:         hash,
		NoteID:       note.ID,
		LastImported: e.clock(),
		LastModified: info.ModTime(),
		SizeBytes:    info.Size(),
	})

	e.logger.Info("file imported",
		"path", relPath,
		"id", note.ID,
		"updated", updated,
		"has_image", note.HasImage(),
		"hash", hash[:8])
	return nil
}

// ImportExternal imports a markdown file from anywhere on disk as a new note.
// The file is not tracked.
func (e *Engine) ImportExternal(ctx context.Context, path string) (store.Note, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return store.Note{}, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return store.Note{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return store.Note{}, fmt.Errorf("%s is a directory", path)
	}

	src, err := readSource(absPath)
	if err != nil {
		return store.Note{}, err
	}
	note, err := e.buildNote(ctx, absPath, info, src.content)
	if err != nil {
		return store.Note{}, err
	}
	note.ID = e.nextID()
	return e.notes.Insert(ctx, note)
}

// buildNote parses the file and encodes its image. An image that cannot be
// encoded keeps its locator but no payload, with a warning.
func (e *Engine) buildNote(ctx context.Context, absPath string, info os.FileInfo, content []byte) (store.Note, error) {
	parsed, err := e.parser.ParseContent(string(content), absPath)
	if err != nil {
		return store.Note{}, fmt.Errorf("failed to parse note: %w", err)
	}
	if !parser.IsValidUTF8(parsed.Body) {
		e.logger.Warn("note is not valid UTF-8", "path", absPath)
	}

	date := parsed.Date
	if date.IsZero() {
		date = info.ModTime()
	}

	note := store.Note{
		Title:   parsed.Title,
		Content: parsed.Body,
		Date:    date.UTC().Format(store.DateLayout),
	}

	if parsed.Image != "" {
		dir := filepath.Dir(absPath)
		encoder := imaging.NewEncoder(e.images.WithBaseDir(dir), e.logger)
		if locator := imageLocator(dir, parsed.Image); locator != "" {
			note.ImageURI = &locator
		}
		if uri, ok := encoder.Encode(ctx, parsed.Image); ok {
			note.ImageBase64 = &uri
		}
	}
	return note, nil
}

// imageLocator returns a file:// URI for a local image reference.
func imageLocator(dir, ref string) string {
	path, err := imaging.LocalPath(ref)
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// nextID returns a note id that is at least the current time in milliseconds
// and greater than any id this engine handed out or tracks.
func (e *Engine) nextID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.clock().UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}
	e.lastID = id
	return id
}

// RemoveFile deletes the note imported from relPath and forgets the file.
func (e *Engine) RemoveFile(ctx context.Context, relPath string) error {
	relPath = filepath.ToSlash(relPath)
	prev := e.state.Get(relPath)
	if prev == nil {
		return nil
	}

	if prev.NoteID != 0 {
		if _, err := e.notes.DeleteByID(ctx, prev.NoteID); err != nil {
			return err
		}
	}
	e.state.Remove(relPath)
	e.logger.Info("file removed", "path", relPath, "id", prev.NoteID)
	return nil
}

// ScanResult summarises a FullScan.
type ScanResult struct {
	Scanned  int
	Imported int
	Removed  int
	Failed   int
}

// FullScan imports every new or changed inbox file and removes the notes of
// tracked files that are gone. Failed imports are queued for RetryFailed.
func (e *Engine) FullScan(ctx context.Context) (ScanResult, error) {
	if e.root == "" {
		return ScanResult{}, ErrNoInbox
	}
	e.logger.Info("starting full scan", "path", e.root)
	start := time.Now()

	var localFiles []string
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		relPath, _ := filepath.Rel(e.root, path)
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		if e.filter.Ignored(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !e.filter.Included(relPath) {
			return nil
		}
		localFiles = append(localFiles, relPath)
		return nil
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to walk inbox: %w", err)
	}

	result := ScanResult{Scanned: len(localFiles)}
	present := make(map[string]bool, len(localFiles))
	var toImport []string

	bar := e.newBar(len(localFiles), "Scanning files")
	for _, relPath := range localFiles {
		present[relPath] = true
		src, err := readSource(filepath.Join(e.root, filepath.FromSlash(relPath)))
		if err != nil {
			e.logger.Warn("failed to read file", "path", relPath, "error", err)
		} else if e.state.NeedsImport(relPath, src.hash) {
			toImport = append(toImport, relPath)
		}
		addBar(bar)
	}
	finishBar(bar)

	if len(toImport) > 0 {
		bar = e.newBar(len(toImport), "Importing notes")
		for _, relPath := range toImport {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := e.ImportFile(ctx, relPath); err != nil {
				e.logger.Error("failed to import file", "path", relPath, "error", err)
				e.queueRetry(relPath)
				result.Failed++
			} else {
				result.Imported++
			}
			addBar(bar)
		}
		finishBar(bar)
	}

	for _, relPath := range e.state.Paths() {
		if present[relPath] {
			continue
		}
		if err := e.RemoveFile(ctx, relPath); err != nil {
			e.logger.Error("failed to remove note of deleted file", "path", relPath, "error", err)
			continue
		}
		result.Removed++
	}

	e.state.SetLastFullScan(e.clock())
	if err := e.state.Save(ctx); err != nil {
		e.logger.Warn("failed to save state", "error", err)
	}

	e.logger.Info("full scan completed",
		"scanned", result.Scanned,
		"imported", result.Imported,
		"removed", result.Removed,
		"failed", result.Failed,
		"duration_s", time.Since(start).Seconds())
	return result, nil
}

func (e *Engine) newBar(n int, description string) *progressbar.ProgressBar {
	if e.progress == nil {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(e.progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}

func addBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Add(1)
	}
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}

func (e *Engine) queueRetry(relPath string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.retryQueue[relPath]; !ok {
		e.retryQueue[relPath] = 0
	}
}

// QueueRetry schedules relPath for the next RetryFailed.
func (e *Engine) QueueRetry(relPath string) {
	e.queueRetry(filepath.ToSlash(relPath))
}

// RetryFailed retries queued imports. A path is dropped once it has failed
// retry_attempts retries.
func (e *Engine) RetryFailed(ctx context.Context) {
	e.mu.Lock()
	queued := make(map[string]int, len(e.retryQueue))
	for path, count := range e.retryQueue {
		queued[path] = count
	}
	e.mu.Unlock()

	for path, count := range queued {
		if count >= e.retryAttempts {
			e.logger.Error("max retries exceeded", "path", path)
			e.dropRetry(path)
			continue
		}

		err := e.ImportFile(ctx, path)
		e.mu.Lock()
		if err != nil {
			e.retryQueue[path] = count + 1
		} else {
			delete(e.retryQueue, path)
		}
		e.mu.Unlock()

		if err != nil {
			e.logger.Warn("retry failed", "path", path, "attempt", count+1, "error", err)
		} else {
			e.logger.Info("retry succeeded", "path", path)
		}
	}
}

func (e *Engine) dropRetry(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.retryQueue, path)
}

// PendingRetries returns count of files pending retry
func (e *Engine) PendingRetries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.retryQueue)
}

// SaveState persists the import state.
func (e *Engine) SaveState(ctx context.Context) error {
	return e.state.Save(ctx)
}

// Status describes the inbox.
type Status struct {
	Root           string
	TrackedFiles   int
	PendingRetries int
	LastFullScan   *time.Time
}

// Status returns the current inbox status.
func (e *Engine) Status() Status {
	return Status{
		Root:           e.root,
		TrackedFiles:   e.state.FileCount(),
		PendingRetries: e.PendingRetries(),
		LastFullScan:   e.state.LastFullScan(),
	}
}
