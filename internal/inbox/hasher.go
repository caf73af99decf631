package inbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// source is an inbox file read once, so the hash that marks it imported is
// the hash of exactly what was parsed.
type source struct {
	content []byte
	hash    string
}

func readSource(path string) (source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("failed to read file: %w", err)
	}
	return source{content: content, hash: Fingerprint(content)}, nil
}

// Fingerprint returns the hex sha256 of content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
