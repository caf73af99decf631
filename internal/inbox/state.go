package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vonshlovens/notestore/internal/kv"
)

// StateKey is the storage key of the inbox import state.
const StateKey = "inbox"

// FileState records the last import of one inbox file.
type FileState struct {
	Hash         string    `json:"hash"`
	NoteID       int64     `json:"note_id"`
	LastImported time.Time `json:"last_imported"`
	LastModified time.Time `json:"last_modified"`
	SizeBytes    int64     `json:"size_bytes"`
}

// State is the persisted import state of an inbox directory.
type State struct {
	Root         string                `json:"root"`
	LastFullScan *time.Time            `json:"last_full_scan,omitempty"`
	Files        map[string]*FileState `json:"files"`
}

// StateTracker keeps the import state in memory and writes it back to the
// store on Save.
type StateTracker struct {
	store  kv.Store
	state  *State
	mu     sync.RWMutex
	dirty  bool
	logger *slog.Logger
}

// LoadStateTracker reads the state for root. A missing or unreadable state, or
// one recorded for a different root, starts empty.
func LoadStateTracker(ctx context.Context, s kv.Store, root string, logger *slog.Logger) (*StateTracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st := &StateTracker{
		store:  s,
		state:  newState(root),
		logger: logger,
	}

	data, ok, err := s.Get(ctx, StateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox state: %w", err)
	}
	if !ok || data == "" {
		return st, nil
	}

	loaded := &State{}
	if err := json.Unmarshal([]byte(data), loaded); err != nil {
		logger.Warn("inbox state unreadable, starting fresh", "error", err)
		st.dirty = true
		return st, nil
	}
	if loaded.Root != root {
		logger.Info("inbox path changed, starting fresh", "previous", loaded.Root, "current", root)
		st.dirty = true
		return st, nil
	}
	if loaded.Files == nil {
		loaded.Files = make(map[string]*FileState)
	}
	st.state = loaded
	return st, nil
}

func newState(root string) *State {
	return &State{Root: root, Files: make(map[string]*FileState)}
}

// Save writes the state when it changed since the last save.
func (st *StateTracker) Save(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.dirty {
		return nil
	}

	data, err := json.Marshal(st.state)
	if err != nil {
		return err
	}
	if err := st.store.Set(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("failed to write inbox state: %w", err)
	}

	st.dirty = false
	st.logger.Debug("inbox state saved", "files", len(st.state.Files))
	return nil
}

// Get returns the state for a file, or nil when it is not tracked.
func (st *StateTracker) Get(path string) *FileState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fs := st.state.Files[path]
	if fs == nil {
		return nil
	}
	c := *fs
	return &c
}

// Set records the state for a file.
func (st *StateTracker) Set(path string, fs *FileState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Files[path] = fs
	st.dirty = true
}

// Remove forgets a file.
func (st *StateTracker) Remove(path string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.state.Files, path)
	st.dirty = true
}

// Paths returns every tracked path, sorted.
func (st *StateTracker) Paths() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	paths := make([]string, 0, len(st.state.Files))
	for path := range st.state.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// NeedsImport reports whether a file is untracked or its content changed.
func (st *StateTracker) NeedsImport(path, hash string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	fs, ok := st.state.Files[path]
	return !ok || fs.Hash != hash
}

// MaxNoteID returns the largest note id recorded, or 0.
func (st *StateTracker) MaxNoteID() int64 {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var max int64
	for _, fs := range st.state.Files {
		if fs.NoteID > max {
			max = fs.NoteID
		}
	}
	return max
}

// SetLastFullScan updates the last full scan time
func (st *StateTracker) SetLastFullScan(t time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.LastFullScan = &t
	st.dirty = true
}

// LastFullScan returns the last full scan time
func (st *StateTracker) LastFullScan() *time.Time {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.LastFullScan
}

// Clear removes all state
func (st *StateTracker) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Files = make(map[string]*FileState)
	st.state.LastFullScan = nil
	st.dirty = true
}

// FileCount returns the number of tracked files
func (st *StateTracker) FileCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.state.Files)
}
