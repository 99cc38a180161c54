package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"garnet/internal/source"
)

// Namespaces separate baselines built with different pipeline settings.
const (
	NamespaceDefault = "default"
	NamespaceNoDSL   = "nodsl"
)

// ErrCorrupt marks entries that exist but cannot be trusted: bad envelope,
// schema or key mismatch, checksum mismatch. Callers treat it as a miss.
var ErrCorrupt = errors.New("cache entry corrupt")

// Key addresses one cached blob. Entries built by another engine version or
// under another namespace never match.
type Key struct {
	EngineVersion string        `msgpack:"version"`
	Namespace     string        `msgpack:"ns"`
	Digest        source.Digest `msgpack:"digest"`
}

// Fingerprint is the hex storage name of the key.
func (k Key) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(k.EngineVersion))
	h.Write([]byte{0})
	h.Write([]byte(k.Namespace))
	h.Write([]byte{0})
	h.Write(k.Digest[:])
	return hex.EncodeToString(h.Sum(nil))
}
