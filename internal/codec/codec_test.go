package codec_test

import (
	"testing"

	"github.com/pennyhailey/witness-protocol/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_Deterministic(t *testing.T) {
	t.Parallel()

	tuple := [3]string{"did:plc:s", "reliable", "2026-01-10T10:00:00Z"}

	first, err := codec.Digest(tuple)
	require.NoError(t, err)
	second, err := codec.Digest(tuple)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestDigest_MapOrderDoesNotMatter(t *testing.T) {
	t.Parallel()

	a := map[string]string{"subject": "s", "claim": "c"}
	b := map[string]string{"claim": "c", "subject": "s"}

	assert.Equal(t, codec.MustDigest(a), codec.MustDigest(b))
}

func TestDigest_FieldBoundaries(t *testing.T) {
	t.Parallel()

	// concatenation-ambiguous tuples must not collide
	left := codec.MustDigest([3]string{"ab", "c", "t"})
	right := codec.MustDigest([3]string{"a", "bc", "t"})

	assert.NotEqual(t, left, right)
}

func TestDecodeValue_JSONAndCBORAgree(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"$type":     "network.witness.attestation",
		"subjectId": "did:plc:s",
		"claim":     "shipped on time",
		"createdAt": "2026-01-10T10:00:00Z",
		"evidence":  []any{map[string]any{"type": "uri", "uri": "https://example.org"}},
	}
	cborData, err := codec.Marshal(record)
	require.NoError(t, err)
	jsonData := []byte(`{"$type":"network.witness.attestation","subjectId":"did:plc:s","claim":"shipped on time","createdAt":"2026-01-10T10:00:00Z","evidence":[{"type":"uri","uri":"https://example.org"}]}`)

	fromCBOR, err := codec.DecodeValue(cborData, "cbor")
	require.NoError(t, err)
	fromJSON, err := codec.DecodeValue(jsonData, "json")
	require.NoError(t, err)
	sniffed, err := codec.DecodeValue(cborData, "")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromCBOR)
	assert.Equal(t, fromCBOR, sniffed)
}

func TestDecodeValue_Errors(t *testing.T) {
	t.Parallel()

	_, err := codec.DecodeValue([]byte(`[1,2]`), "json")
	assert.ErrorIs(t, err, codec.ErrNotAnObject)

	_, err = codec.DecodeValue([]byte(`{`), "json")
	assert.Error(t, err)

	_, err = codec.DecodeValue([]byte(`{}`), "xml")
	assert.ErrorIs(t, err, codec.ErrUnsupportedEncoding)
}
