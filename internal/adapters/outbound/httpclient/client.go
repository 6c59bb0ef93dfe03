package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// MaxResponseSize bounds response body reads after decompression.
const MaxResponseSize int64 = 32 << 20

const acceptEncoding = "zstd, gzip"

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body too large")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON decodes the body into v
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client is an HTTP client for repository hosts and indexers. It asks for
// zstd or gzip compressed responses and bounds the decompressed size.
//
// A client built with NewSPIFFE authenticates with an X.509 SVID and
// verifies the server's SPIFFE ID (mTLS).
type Client struct {
	client     *http.Client
	x509Source *workloadapi.X509Source
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the overall request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying client (tests use httptest clients)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// New creates a plain HTTPS client
func New(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Transport: newTransport(),
			Timeout:   30 * time.Second,
		},
		userAgent: "witness-protocol",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSPIFFE creates an mTLS client backed by the Workload API at socketPath.
// The authorizer verifies the server's identity.
func NewSPIFFE(ctx context.Context, socketPath string, serverAuthorizer tlsconfig.Authorizer, opts ...Option) (*Client, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if serverAuthorizer == nil {
		return nil, fmt.Errorf("server authorizer is required")
	}

	// The source fetches and rotates the SVID in the background
	x509Source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(
			workloadapi.WithAddr(socketPath),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create X509Source: %w", err)
	}

	transport := newTransport()
	transport.TLSClientConfig = tlsconfig.MTLSClientConfig(
		x509Source,       // SVID source (client certificate)
		x509Source,       // Bundle source (trusted CAs)
		serverAuthorizer, // Server identity verification
	)

	c := New(opts...)
	c.client.Transport = transport
	c.x509Source = x509Source
	return c, nil
}

// Authorizer builds a server authorizer from exactly one of an expected
// SPIFFE ID or an expected trust domain.
func Authorizer(expectedID, expectedTrustDomain string) (tlsconfig.Authorizer, error) {
	switch {
	case expectedID != "" && expectedTrustDomain != "":
		return nil, fmt.Errorf("set only one of expected server SPIFFE ID or trust domain")
	case expectedID != "":
		id, err := spiffeid.FromString(expectedID)
		if err != nil {
			return nil, fmt.Errorf("invalid expected server SPIFFE ID: %w", err)
		}
		return tlsconfig.AuthorizeID(id), nil
	case expectedTrustDomain != "":
		td, err := spiffeid.TrustDomainFromString(expectedTrustDomain)
		if err != nil {
			return nil, fmt.Errorf("invalid expected server trust domain: %w", err)
		}
		return tlsconfig.AuthorizeMemberOf(td), nil
	default:
		return nil, fmt.Errorf("expected server SPIFFE ID or trust domain is required")
	}
}

// Get performs a GET request and reads the whole, decompressed body.
// Non-2xx statuses are returned as a Response, not an error.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading zstd body: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return data, nil
}

// Close releases all resources used by the client.
func (c *Client) Close() error {
	if c.client != nil {
		c.client.CloseIdleConnections()
	}

	// Stops SVID fetching and rotation
	if c.x509Source != nil {
		if err := c.x509Source.Close(); err != nil {
			return fmt.Errorf("failed to close X509Source: %w", err)
		}
	}

	return nil
}
