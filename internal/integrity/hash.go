// Package integrity computes the content digests used as the tamper-evidence
// pair on document records. Digests are SHA-256 and rendered as lowercase hex.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Digest hashes a byte sequence.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestFile hashes the contents of a file on disk.
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Digest(data), nil
}
