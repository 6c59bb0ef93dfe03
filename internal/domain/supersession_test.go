package domain_test

import (
	"testing"
	"time"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const subject = domain.Identifier("did:plc:subject")

var t0 = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

func opRef(key string) domain.RecordRef {
	return domain.RecordRef{Repo: subject, Collection: string(domain.KindOperator), Key: key}
}

func operator(key string, createdAt time.Time, supersedes string) domain.OperatorRecord {
	rec := domain.OperatorRecord{
		Ref:        opRef(key),
		Subject:    subject,
		OperatorID: "did:plc:operator-" + domain.Identifier(key),
		CreatedAt:  createdAt,
	}
	if supersedes != "" {
		ref := opRef(supersedes)
		rec.Supersedes = &ref
	}
	return rec
}

func TestResolveCurrentOperator_FollowsSupersedes(t *testing.T) {
	t.Parallel()

	a := operator("a", t0, "")
	b := operator("b", t0.Add(time.Hour), "a")

	res, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{a, b})

	require.True(t, ok)
	assert.Equal(t, b.Ref, res.Current.Ref)
	assert.Empty(t, res.Conflicting)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Chain, 2)
	assert.Equal(t, a.Ref, res.Chain[1].Ref)
}

func TestResolveCurrentOperator_SupersedesBeatsTimestamp(t *testing.T) {
	t.Parallel()

	// b supersedes a even though a carries a later createdAt (clock skew)
	a := operator("a", t0.Add(2*time.Hour), "")
	b := operator("b", t0, "a")

	res, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{a, b})

	require.True(t, ok)
	assert.Equal(t, b.Ref, res.Current.Ref)
}

func TestResolveCurrentOperator_NoLinkPicksLatest(t *testing.T) {
	t.Parallel()

	a := operator("a", t0, "")
	b := operator("b", t0.Add(time.Minute), "")

	for _, input := range [][]domain.OperatorRecord{{a, b}, {b, a}} {
		res, ok := domain.ResolveCurrentOperator(subject, input)
		require.True(t, ok)
		assert.Equal(t, b.Ref, res.Current.Ref)
		require.Len(t, res.Conflicting, 1)
		assert.Equal(t, a.Ref, res.Conflicting[0].Ref)
	}
}

func TestResolveCurrentOperator_TieBrokenDeterministically(t *testing.T) {
	t.Parallel()

	a := operator("a", t0, "")
	b := operator("b", t0, "")

	first, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{a, b})
	require.True(t, ok)
	second, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{b, a})
	require.True(t, ok)

	assert.Equal(t, first.Current.Ref, second.Current.Ref)
	assert.Len(t, first.Warnings, 1)
	assert.Contains(t, first.Warnings[0], "concurrent tips")
}

func TestResolveCurrentOperator_CycleFallsBackToLatest(t *testing.T) {
	t.Parallel()

	a := operator("a", t0, "b")
	b := operator("b", t0.Add(time.Hour), "a")

	res, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{a, b})

	require.True(t, ok)
	assert.Equal(t, b.Ref, res.Current.Ref)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "could not be fully resolved")
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "cycle")
}

func TestResolveCurrentOperator_DanglingReference(t *testing.T) {
	t.Parallel()

	// c supersedes a record that was not fetched; it is still the only tip
	c := operator("c", t0, "missing")

	res, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{c})

	require.True(t, ok)
	assert.Equal(t, c.Ref, res.Current.Ref)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not observed")
}

func TestResolveCurrentOperator_EverythingSuperseded(t *testing.T) {
	t.Parallel()

	// Both records are superseded: b by a, a by a record absent from this fetch's view of refs
	a := operator("a", t0, "b")
	b := operator("b", t0.Add(time.Minute), "a")
	other := operator("x", t0.Add(time.Hour), "")
	other.Subject = "did:plc:someone-else"

	res, ok := domain.ResolveCurrentOperator(subject, []domain.OperatorRecord{a, b, other})

	require.True(t, ok)
	assert.Equal(t, b.Ref, res.Current.Ref, "records for other subjects are ignored")
}

func TestResolveCurrentOperator_Empty(t *testing.T) {
	t.Parallel()

	_, ok := domain.ResolveCurrentOperator(subject, nil)
	assert.False(t, ok)
}

func TestResolveCurrentOperator_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	a := operator("a", t0, "")
	b := operator("b", t0.Add(time.Hour), "a")
	input := []domain.OperatorRecord{a, b}

	_, _ = domain.ResolveCurrentOperator(subject, input)

	assert.Equal(t, a.Ref, input[0].Ref)
	assert.Equal(t, b.Ref, input[1].Ref)
}
