package watcher

import (
	"testing"
	"time"
)

func TestDebouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(50)
	defer d.Stop()

	d.Add("test.md", EventCreate)

	select {
	case event := <-d.Events():
		if event.Path != "test.md" {
			t.Errorf("expected path 'test.md', got %q", event.Path)
		}
		if event.EventType != EventCreate {
			t.Errorf("expected EventCreate, got %v", event.EventType)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("timed out waiting for event")
	}
}

func TestDebouncer_CoalesceWrites(t *testing.T) {
	d := NewDebouncer(100)
	defer d.Stop()

	d.Add("test.md", EventModify)
	d.Add("test.md", EventModify)
	d.Add("test.md", EventModify)

	eventCount := 0
	timeout := time.After(400 * time.Millisecond)

loop:
	for {
		select {
		case <-d.Events():
			eventCount++
		case <-timeout:
			break loop
		}
	}

	if eventCount != 1 {
		t.Errorf("expected 1 coalesced event, got %d", eventCount)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name    string
		pending EventType
		next    EventType
		want    EventType
	}{
		{"delete wins over create", EventCreate, EventDelete, EventDelete},
		{"delete wins over modify", EventModify, EventDelete, EventDelete},
		{"create then modify stays create", EventCreate, EventModify, EventCreate},
		{"modify then modify", EventModify, EventModify, EventModify},
		{"delete then create is a modify", EventDelete, EventCreate, EventModify},
		{"delete then modify is a modify", EventDelete, EventModify, EventModify},
		{"modify then create", EventModify, EventCreate, EventCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coalesce(tt.pending, tt.next); got != tt.want {
				t.Errorf("coalesce(%v, %v) = %v, want %v", tt.pending, tt.next, got, tt.want)
			}
		})
	}
}

func TestDebouncer_DeleteWins(t *testing.T) {
	d := NewDebouncer(100)
	defer d.Stop()

	d.Add("test.md", EventCreate)
	d.Add("test.md", EventDelete)

	select {
	case event := <-d.Events():
		if event.EventType != EventDelete {
			t.Errorf("expected EventDelete to win, got %v", event.EventType)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("timed out waiting for event")
	}
}

func TestDebouncer_MultipleFiles(t *testing.T) {
	d := NewDebouncer(50)
	defer d.Stop()

	d.Add("file1.md", EventCreate)
	d.Add("file2.md", EventModify)

	received := make(map[string]bool)
	timeout := time.After(500 * time.Millisecond)

loop:
	for {
		select {
		case event := <-d.Events():
			received[event.Path] = true
			if len(received) == 2 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	if !received["file1.md"] || !received["file2.md"] {
		t.Errorf("expected both files, got %v", received)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(5000)
	defer d.Stop()

	d.Add("test.md", EventCreate)

	if d.PendingCount() != 1 {
		t.Errorf("expected 1 pending, got %d", d.PendingCount())
	}

	d.Flush()

	select {
	case event := <-d.Events():
		if event.Path != "test.md" {
			t.Errorf("expected path 'test.md', got %q", event.Path)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("flush should emit immediately")
	}

	if d.PendingCount() != 0 {
		t.Errorf("expected 0 pending after flush, got %d", d.PendingCount())
	}
}

func TestDebouncer_StopClosesEvents(t *testing.T) {
	d := NewDebouncer(5000)
	d.Add("test.md", EventCreate)
	d.Stop()
	d.Stop()

	if _, ok := <-d.Events(); ok {
		t.Error("expected closed channel after Stop")
	}

	// Adds after stop are dropped.
	d.Add("late.md", EventCreate)
	if d.PendingCount() != 0 {
		t.Errorf("expected no pending events after stop, got %d", d.PendingCount())
	}
}

func TestDebouncer_StopDuringEmit(t *testing.T) {
	d := NewDebouncer(0)
	for i := 0; i < 200; i++ {
		d.Add("file.md", EventModify)
		d.Add("other.md", EventModify)
	}
	d.Stop()
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		event    EventType
		expected string
	}{
		{EventCreate, "CREATE"},
		{EventModify, "MODIFY"},
		{EventDelete, "DELETE"},
		{EventType(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if tt.event.String() != tt.expected {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.event, tt.event.String(), tt.expected)
		}
	}
}
