package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    domain.RecordRef
		wantErr bool
	}{
		{
			name:  "did repository",
			input: "at://did:plc:w1/network.witness.attestation/3kabc",
			want:  domain.RecordRef{Repo: "did:plc:w1", Collection: "network.witness.attestation", Key: "3kabc"},
		},
		{
			name:  "spiffe repository keeps its path",
			input: "at://spiffe://example.org/agent/a1/network.witness.operator/self",
			want:  domain.RecordRef{Repo: "spiffe://example.org/agent/a1", Collection: "network.witness.operator", Key: "self"},
		},
		{name: "missing scheme", input: "did:plc:w1/coll/key", wantErr: true},
		{name: "missing key", input: "at://did:plc:w1/coll/", wantErr: true},
		{name: "only repo", input: "at://did:plc:w1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParseRecordRef(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRecordRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestRecordRef_JSON(t *testing.T) {
	t.Parallel()

	rec := domain.AttestationRecord{
		Ref:       domain.RecordRef{Repo: "did:plc:w1", Collection: "network.witness.attestation", Key: "k"},
		SubjectID: "did:plc:s",
		Claim:     "ok",
		CreatedAt: t0,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"uri":"at://did:plc:w1/network.witness.attestation/k"`)
	assert.NotContains(t, string(data), "contestsRecord")

	var back domain.AttestationRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.Ref, back.Ref)
}

func TestParseSentimentAndCategory(t *testing.T) {
	t.Parallel()

	_, err := domain.ParseSentiment("angry")
	assert.ErrorIs(t, err, domain.ErrInvalidSentiment)

	s, err := domain.ParseSentiment("neutral")
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNeutral, s)

	_, err = domain.ParseClaimCategory("rumor")
	assert.ErrorIs(t, err, domain.ErrInvalidClaimCategory)

	assert.Equal(t, "unknown", domain.CategoryUnknown.Label())
}
