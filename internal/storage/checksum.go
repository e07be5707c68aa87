package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum is the content fingerprint stored in FileMeta and compared by
// the index to skip unchanged files.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
