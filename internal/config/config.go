package config

import "time"

// Defaults for a config file that omits a value.
const (
	DefaultServiceURL        = "https://bsky.social"
	DefaultPageSize          = 100
	DefaultMaxPages          = 10
	DefaultRequestsPerSecond = 10
	DefaultMaxConcurrency    = 8
	DefaultFetchTimeout      = "10s"
	DefaultListenAddr        = "127.0.0.1:8080"
	DefaultInitialFetch      = "30s"
)

// RepositorySection selects where witness repositories are read from.
// Exactly one of ServiceURL and MirrorDir is used.
type RepositorySection struct {
	// ServiceURL is the XRPC host serving com.atproto.repo.listRecords.
	// Example: "https://bsky.social"
	ServiceURL string `yaml:"service_url"`

	// MirrorDir reads repositories from a local mirror instead of the network
	MirrorDir string `yaml:"mirror_dir"`

	// PageSize is the limit sent with each listRecords call (1-100)
	PageSize int `yaml:"page_size"`

	// MaxPages caps the pages followed per repository and per indexer
	MaxPages int `yaml:"max_pages"`

	// RequestsPerSecond paces calls to ServiceURL. 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// DiscoverySection holds the engine's defaults for every discovery.
type DiscoverySection struct {
	MaxConcurrency int `yaml:"max_concurrency"`

	// FetchTimeout bounds each remote fetch.
	// Use Go duration format: "5s", "30s", "1m", etc.
	FetchTimeout string `yaml:"fetch_timeout"`

	// Deduplicate collapses copies of one record seen through several channels.
	// Unset means true.
	Deduplicate *bool `yaml:"deduplicate"`

	// Social derives candidate witnesses from the subject's follows
	Social bool `yaml:"social"`

	KnownWitnesses []string `yaml:"known_witnesses"`
	Registries     []string `yaml:"registries"`
	// Indexers are base URLs of indexer query APIs
	Indexers []string `yaml:"indexers"`
}

// SPIFFESection enables mTLS to repository hosts and indexers using an
// X.509 SVID from the SPIFFE Workload API. Leave WorkloadSocket empty for
// plain HTTPS.
type SPIFFESection struct {
	// WorkloadSocket is the Workload API endpoint.
	// Example: "unix:///tmp/spire-agent/public/api.sock"
	WorkloadSocket string `yaml:"workload_socket"`

	ExpectedServerSPIFFEID    string `yaml:"expected_server_spiffe_id"`
	ExpectedServerTrustDomain string `yaml:"expected_server_trust_domain"`

	// InitialFetchTimeout is how long to wait for the first SVID and bundle
	InitialFetchTimeout string `yaml:"initial_fetch_timeout"`
}

// HTTPSection configures the `serve` HTTP API.
//
// Setting one of the allowed client fields serves over mTLS with the SVID
// from spiffe.workload_socket.
type HTTPSection struct {
	ListenAddr               string `yaml:"listen_addr"`
	AllowedClientSPIFFEID    string `yaml:"allowed_client_spiffe_id"`
	AllowedClientTrustDomain string `yaml:"allowed_client_trust_domain"`
}

// MTLS reports whether the API is served over mTLS
func (h HTTPSection) MTLS() bool {
	return h.AllowedClientSPIFFEID != "" || h.AllowedClientTrustDomain != ""
}

// LogSection configures the process logger.
type LogSection struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// FileConfig represents a witness configuration file.
//
// The config format is versioned to support future evolution without breaking changes.
type FileConfig struct {
	// Version is the config file format version (optional, currently always 1)
	Version int `yaml:"version,omitempty"`

	Repository RepositorySection `yaml:"repository"`
	Discovery  DiscoverySection  `yaml:"discovery"`
	SPIFFE     SPIFFESection     `yaml:"spiffe"`
	HTTP       HTTPSection       `yaml:"http"`
	Log        LogSection        `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Version: 1,
		Repository: RepositorySection{
			ServiceURL:        DefaultServiceURL,
			PageSize:          DefaultPageSize,
			MaxPages:          DefaultMaxPages,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Discovery: DiscoverySection{
			MaxConcurrency: DefaultMaxConcurrency,
			FetchTimeout:   DefaultFetchTimeout,
		},
		SPIFFE: SPIFFESection{
			InitialFetchTimeout: DefaultInitialFetch,
		},
		HTTP: HTTPSection{
			ListenAddr: DefaultListenAddr,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// DeduplicateEnabled reports the effective deduplication default
func (d DiscoverySection) DeduplicateEnabled() bool {
	return d.Deduplicate == nil || *d.Deduplicate
}

// Timeout returns the parsed fetch timeout. Call after Validate.
func (d DiscoverySection) Timeout() time.Duration {
	t, err := time.ParseDuration(d.FetchTimeout)
	if err != nil || t <= 0 {
		t, _ = time.ParseDuration(DefaultFetchTimeout)
	}
	return t
}

// InitialFetch returns the parsed initial SVID fetch timeout. Call after Validate.
func (s SPIFFESection) InitialFetch() time.Duration {
	t, err := time.ParseDuration(s.InitialFetchTimeout)
	if err != nil || t <= 0 {
		t, _ = time.ParseDuration(DefaultInitialFetch)
	}
	return t
}

// Enabled reports whether mTLS through the Workload API is configured
func (s SPIFFESection) Enabled() bool {
	return s.WorkloadSocket != ""
}
