package source

import (
	"crypto/sha256"
	"encoding/hex"
)

type (
	// FileID uniquely identifies an ingested source unit for the lifetime of a run.
	FileID uint32 // 0 зарезервирован
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

// NoFileID marks the absence of a file reference.
const NoFileID FileID = 0

// IsValid reports whether the id refers to a registered file.
func (id FileID) IsValid() bool { return id != NoFileID }

const (
	// FileVirtual indicates the file was added from memory (-e, tests).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FilePayload marks files that belong to the baseline state.
	FilePayload
	// FileRBI marks interface-only files (*.rbi).
	FileRBI
)

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// Hash returns the sha256 digest of content.
func Hash(content []byte) Digest {
	return Digest(sha256.Sum256(content))
}

// Combine builds H(first || rest...). The order of parts must be deterministic.
func Combine(first Digest, rest ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(first[:])
	for _, d := range rest {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether the digest was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }
