package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest domains. The version suffix allows changing the algorithm later.
const (
	DomainStateBlob = "warden/state/v1"
	DomainSnapshot  = "warden/snapshot/v1"
)

// Digest returns SHA256(domain || 0x00 || canonical(v)) as hex.
func Digest(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return DigestBytes(domain, canonical), nil
}

// DigestBytes hashes already-canonical bytes under domain.
func DigestBytes(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
