// Package fileid derives deterministic document IDs for files picked up
// from the intake directory.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc-"

// DocumentID returns a stable document ID for the given path. The same
// path always yields the same ID, so a re-dropped file overwrites its
// earlier run instead of duplicating records.
func DocumentID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:8])
}
