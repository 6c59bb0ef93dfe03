package xrpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/httpclient"
	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/xrpc"
	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

const (
	w1         = domain.Identifier("did:plc:w1")
	collection = "network.witness.attestation"
)

func newReader(t *testing.T, handler http.HandlerFunc) *xrpc.Reader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := xrpc.NewReader(srv.URL+"/", httpclient.New(httpclient.WithHTTPClient(srv.Client())))
	require.NoError(t, err)
	return r
}

func TestReader_ListRecords(t *testing.T) {
	t.Parallel()

	r := newReader(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/xrpc/"+xrpc.ListRecordsMethod, req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, string(w1), q.Get("repo"))
		assert.Equal(t, collection, q.Get("collection"))
		assert.Equal(t, "2", q.Get("limit"))
		assert.Equal(t, "3k0", q.Get("cursor"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{
					"uri":   "at://did:plc:w1/network.witness.attestation/3k1",
					"cid":   "bafy1",
					"value": map[string]any{"$type": collection, "claim": "ok"},
				},
				{
					// repo mismatch is dropped
					"uri":   "at://did:plc:other/network.witness.attestation/3k2",
					"value": map[string]any{},
				},
			},
			"cursor": "3k1",
		})
	})

	page, err := r.ListRecords(context.Background(), w1, collection, "3k0", 2)

	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	env := page.Records[0]
	assert.Equal(t, "at://did:plc:w1/network.witness.attestation/3k1", env.Ref.String())
	assert.Equal(t, "bafy1", env.CID)
	assert.Equal(t, ports.EncodingJSON, env.Encoding)
	assert.JSONEq(t, `{"$type":"network.witness.attestation","claim":"ok"}`, string(env.Value))
	assert.Equal(t, "3k1", page.Cursor)
}

func TestReader_ListRecords_EmptyPageEndsPagination(t *testing.T) {
	t.Parallel()

	r := newReader(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records":[],"cursor":"stuck"}`))
	})

	page, err := r.ListRecords(context.Background(), w1, collection, "", 0)

	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.Cursor)
}

func TestReader_ListRecords_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"repo not found", http.StatusBadRequest, `{"error":"RepoNotFound","message":"Could not find repo"}`, ports.ErrRepositoryNotFound},
		{"404", http.StatusNotFound, ``, ports.ErrRepositoryNotFound},
		{"server error", http.StatusBadGateway, `{"error":"UpstreamFailure"}`, ports.ErrRepositoryUnavailable},
		{"rate limited", http.StatusTooManyRequests, ``, ports.ErrRepositoryUnavailable},
		{"malformed body", http.StatusOK, `{"records":`, ports.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newReader(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := r.ListRecords(context.Background(), w1, collection, "", 10)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReader_ListRecords_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r, err := xrpc.NewReader(url, httpclient.New())
	require.NoError(t, err)

	_, err = r.ListRecords(context.Background(), w1, collection, "", 10)

	assert.ErrorIs(t, err, ports.ErrRepositoryUnavailable)
}

func TestReader_ListRecords_CancelledContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r := newReader(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"records":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ListRecords(ctx, w1, collection, "", 10)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestReader_RateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	r, err := xrpc.NewReader(srv.URL, httpclient.New(httpclient.WithHTTPClient(srv.Client())),
		xrpc.WithRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = r.ListRecords(context.Background(), w1, collection, "", 10)
	require.NoError(t, err)

	// The bucket is empty; a short deadline cannot be met
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.ListRecords(ctx, w1, collection, "", 10)
	assert.Error(t, err)
}

func TestNewReader_Validation(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"", "pds.example.com", "ftp://pds.example.com", "https://"} {
		_, err := xrpc.NewReader(u, httpclient.New())
		assert.Error(t, err, u)
	}
	_, err := xrpc.NewReader("https://pds.example.com", nil)
	assert.Error(t, err)
}
