package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest returns the hex BLAKE3-256 digest of the deterministic CBOR
// encoding of v.
func Digest(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding for digest: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MustDigest is Digest for values whose encoding cannot fail (strings,
// fixed arrays of strings). It panics otherwise.
func MustDigest(v any) string {
	d, err := Digest(v)
	if err != nil {
		panic("codec: " + err.Error())
	}
	return d
}
