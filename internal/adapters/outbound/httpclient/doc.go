// Package httpclient provides the HTTP client shared by the XRPC repository
// reader and the indexer client.
//
// Two constructors are available:
//   - New: plain HTTPS, for public repository hosts and indexers.
//   - NewSPIFFE: mTLS with an X.509 SVID from the SPIFFE Workload API, for
//     indexers that authenticate callers by SPIFFE ID.
//
// # Usage
//
//	authorizer, err := httpclient.Authorizer("", "example.org")
//	if err != nil {
//	    return err
//	}
//	client, err := httpclient.NewSPIFFE(ctx, "unix:///tmp/spire-agent/public/api.sock", authorizer)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "https://indexer.internal/attestations?subject=did:plc:abc")
//
// # Responses
//
// Requests advertise zstd and gzip support. Bodies are decompressed and read
// fully, bounded by MaxResponseSize. A non-2xx status is not an error at
// this layer; callers map it to their own port errors.
//
// # Security
//
// With NewSPIFFE the server is verified by SPIFFE ID, not DNS hostname.
// Exactly one of an expected SPIFFE ID or trust domain must be given to
// Authorizer.
//
// # Resource Management
//
// Always call Close(): it stops SVID rotation and closes idle connections.
package httpclient
