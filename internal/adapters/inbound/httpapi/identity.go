package httpapi

import (
	"context"
	"net/http"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls"
)

// contextKey is the type for context keys to avoid collisions.
type contextKey string

const spiffeIDKey contextKey = "spiffe-id"

// GetSPIFFEID extracts the authenticated caller's SPIFFE ID from request context.
// Returns the ID and true if the request arrived over mTLS, zero value and false otherwise.
func GetSPIFFEID(r *http.Request) (spiffeid.ID, bool) {
	id, ok := r.Context().Value(spiffeIDKey).(spiffeid.ID)
	return id, ok
}

// WithSPIFFEID adds a SPIFFE ID to the request context.
// This is primarily used for testing.
func WithSPIFFEID(r *http.Request, id spiffeid.ID) *http.Request {
	ctx := context.WithValue(r.Context(), spiffeIDKey, id)
	return r.WithContext(ctx)
}

// callerString returns the caller's SPIFFE ID for logs, or "anonymous"
func callerString(r *http.Request) string {
	if id, ok := GetSPIFFEID(r); ok {
		return id.String()
	}
	return "anonymous"
}

// peerIdentity stores the client's SPIFFE ID in the request context when
// the connection is mTLS. Plain HTTP requests pass through unchanged; the
// TLS authorizer has already rejected unauthorized peers.
func peerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil {
			if id, err := spiffetls.PeerIDFromConnectionState(*r.TLS); err == nil {
				r = WithSPIFFEID(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}
