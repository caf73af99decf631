package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vonshlovens/notestore/internal/config"
)

func TestFilter(t *testing.T) {
	f := Filter{
		Ignore:  []string{".obsidian/**", ".trash", "**/.DS_Store", "drafts/*.md"},
		Include: []string{"**/*.md"},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"note.md", true},
		{"journal/2024/jan.md", true},
		{"photo.png", false},
		{".obsidian/workspace.md", false},
		{".trash/old.md", false},
		{"a/.DS_Store", false},
		{"drafts/wip.md", false},
		{"drafts/deep/ok.md", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := f.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFilter_NoIncludeMatchesAll(t *testing.T) {
	f := Filter{}
	if !f.Match("anything/at/all.txt") {
		t.Error("empty filter should match everything")
	}
}

func waitFor(t *testing.T, events <-chan FileEvent, path string, want EventType) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", path)
			}
			if ev.Path == path && ev.EventType == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v on %s", want, path)
		}
	}
}

func TestWatcher_ReportsMarkdownChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".obsidian"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := config.InboxConfig{
		Path:            root,
		DebounceMs:      20,
		IgnorePatterns:  []string{".obsidian/**"},
		IncludePatterns: []string{"**/*.md"},
	}
	w, err := NewWatcher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "hello.md")
	if err := os.WriteFile(path, []byte("# Hello"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w.Events(), "hello.md", EventCreate)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w.Events(), "hello.md", EventDelete)

	// A file created inside a new directory is reported once the directory is watched.
	sub := filepath.Join(root, "journal")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "day.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w.Events(), "journal/day.md", EventCreate)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(config.InboxConfig{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}
