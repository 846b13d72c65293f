// Package hasher computes content digests used as tile identifiers.
//
// A digest is the lowercase hex encoding of a 256-bit hash, so it is
// always 64 characters long. The short form is the first 16 characters
// of the digest and is meant for filenames where a higher collision
// probability is acceptable.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
)

// ShortLength is the number of hex characters in a short digest.
const ShortLength = 16

// Algorithm selects the hash function behind a Hasher.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm parses an algorithm name. The empty string selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm: %q", name)
	}
}

// Hasher computes digests with one algorithm. The zero value uses SHA256.
// A Hasher has no mutable state and is safe for concurrent use.
type Hasher struct {
	alg Algorithm
}

// New returns a Hasher for the given algorithm.
func New(alg Algorithm) (*Hasher, error) {
	switch alg {
	case "", SHA256:
		return &Hasher{alg: SHA256}, nil
	case BLAKE3:
		return &Hasher{alg: BLAKE3}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", alg)
	}
}

// Algorithm returns the algorithm used by h.
func (h *Hasher) Algorithm() Algorithm {
	if h == nil || h.alg == "" {
		return SHA256
	}
	return h.alg
}

// Digest returns the hex digest of data.
func (h *Hasher) Digest(data []byte) string {
	var fn hash.Hash
	if h.Algorithm() == BLAKE3 {
		fn = blake3.New()
	} else {
		fn = sha256.New()
	}
	fn.Write(data)
	return hex.EncodeToString(fn.Sum(nil))
}

// ShortDigest returns the first ShortLength characters of Digest(data).
func (h *Hasher) ShortDigest(data []byte) string {
	return h.Digest(data)[:ShortLength]
}

var defaultHasher = &Hasher{alg: SHA256}

// Digest returns the SHA-256 hex digest of data.
func Digest(data []byte) string {
	return defaultHasher.Digest(data)
}

// ShortDigest returns the first 16 characters of the SHA-256 hex digest of data.
func ShortDigest(data []byte) string {
	return defaultHasher.ShortDigest(data)
}
