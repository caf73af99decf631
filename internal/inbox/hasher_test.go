package inbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFingerprint(t *testing.T) {
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Fingerprint([]byte("hello")); got != want {
		t.Errorf("Fingerprint(hello) = %q, want %q", got, want)
	}
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Error("different content should produce different fingerprints")
	}
}

func TestReadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	content := "# Catatan\nisi"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	src, err := readSource(path)
	if err != nil {
		t.Fatalf("readSource failed: %v", err)
	}
	if string(src.content) != content {
		t.Errorf("content = %q, want %q", src.content, content)
	}
	if src.hash != Fingerprint([]byte(content)) {
		t.Errorf("hash %q does not match content", src.hash)
	}
}

func TestReadSource_NotFound(t *testing.T) {
	if _, err := readSource("/nonexistent/path/file.md"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
