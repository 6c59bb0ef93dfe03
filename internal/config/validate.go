package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// maxPageSize is the largest limit listRecords accepts
const maxPageSize = 100

// Validate checks a loaded configuration.
//
// Ensures:
//   - Exactly one of repository.service_url or repository.mirror_dir is set
//   - Paging, pacing and concurrency values are in range
//   - Durations parse and are positive
//   - Indexer entries are absolute http(s) URLs
//   - If spiffe.workload_socket is set, exactly one server verification
//     policy is set and is syntactically valid (using SDK validation)
//   - log.level and log.format are known
func Validate(cfg FileConfig) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateServe additionally checks the settings used by the HTTP API.
//
// Ensures:
//   - ListenAddr is non-empty
//   - At most one of AllowedClientSPIFFEID or AllowedClientTrustDomain is set,
//     and if one is, spiffe.workload_socket is set too
func ValidateServe(cfg FileConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := validateServe(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateServe(cfg FileConfig) error {
	if strings.TrimSpace(cfg.HTTP.ListenAddr) == "" {
		return errors.New("http.listen_addr must be set")
	}
	if !cfg.HTTP.MTLS() {
		return nil
	}
	if !cfg.SPIFFE.Enabled() {
		return errors.New("spiffe.workload_socket must be set to serve over mTLS")
	}

	hasClientID := cfg.HTTP.AllowedClientSPIFFEID != ""
	hasTrustDomain := cfg.HTTP.AllowedClientTrustDomain != ""
	if hasClientID && hasTrustDomain {
		return errors.New("cannot set both http.allowed_client_spiffe_id and http.allowed_client_trust_domain")
	}
	if hasClientID {
		if _, err := spiffeid.FromString(cfg.HTTP.AllowedClientSPIFFEID); err != nil {
			return fmt.Errorf("invalid http.allowed_client_spiffe_id %q: %w", cfg.HTTP.AllowedClientSPIFFEID, err)
		}
	}
	if hasTrustDomain {
		if _, err := spiffeid.TrustDomainFromString(cfg.HTTP.AllowedClientTrustDomain); err != nil {
			return fmt.Errorf("invalid http.allowed_client_trust_domain %q: %w", cfg.HTTP.AllowedClientTrustDomain, err)
		}
	}
	return nil
}

func validate(cfg FileConfig) error {
	repo := cfg.Repository
	hasService := repo.ServiceURL != ""
	hasMirror := repo.MirrorDir != ""
	if !hasService && !hasMirror {
		return errors.New("must set exactly one of repository.service_url or repository.mirror_dir")
	}
	if hasService && hasMirror {
		return errors.New("cannot set both repository.service_url and repository.mirror_dir")
	}
	if hasService {
		if err := checkHTTPURL(repo.ServiceURL); err != nil {
			return fmt.Errorf("invalid repository.service_url: %w", err)
		}
	}
	if repo.PageSize < 1 || repo.PageSize > maxPageSize {
		return fmt.Errorf("repository.page_size must be between 1 and %d, got %d", maxPageSize, repo.PageSize)
	}
	if repo.MaxPages < 1 {
		return fmt.Errorf("repository.max_pages must be positive, got %d", repo.MaxPages)
	}
	if repo.RequestsPerSecond < 0 {
		return fmt.Errorf("repository.requests_per_second must not be negative, got %v", repo.RequestsPerSecond)
	}

	disc := cfg.Discovery
	if disc.MaxConcurrency < 1 {
		return fmt.Errorf("discovery.max_concurrency must be positive, got %d", disc.MaxConcurrency)
	}
	if err := checkDuration("discovery.fetch_timeout", disc.FetchTimeout); err != nil {
		return err
	}
	for i, u := range disc.Indexers {
		if err := checkHTTPURL(u); err != nil {
			return fmt.Errorf("invalid discovery.indexers[%d]: %w", i, err)
		}
	}
	for i, id := range disc.Registries {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("discovery.registries[%d] is empty", i)
		}
	}
	for i, id := range disc.KnownWitnesses {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("discovery.known_witnesses[%d] is empty", i)
		}
	}

	if err := validateSPIFFE(cfg.SPIFFE); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	return nil
}

func validateSPIFFE(s SPIFFESection) error {
	hasServerID := s.ExpectedServerSPIFFEID != ""
	hasTrustDomain := s.ExpectedServerTrustDomain != ""

	if !s.Enabled() {
		if hasServerID || hasTrustDomain {
			return errors.New("spiffe.workload_socket must be set when a server verification policy is configured")
		}
		return nil
	}

	// Ensure exactly one server verification policy is set
	if !hasServerID && !hasTrustDomain {
		return errors.New("must set exactly one of spiffe.expected_server_spiffe_id or spiffe.expected_server_trust_domain")
	}
	if hasServerID && hasTrustDomain {
		return errors.New("cannot set both spiffe.expected_server_spiffe_id and spiffe.expected_server_trust_domain")
	}

	// Validate formats using SDK
	if hasServerID {
		if _, err := spiffeid.FromString(s.ExpectedServerSPIFFEID); err != nil {
			return fmt.Errorf("invalid spiffe.expected_server_spiffe_id %q: %w", s.ExpectedServerSPIFFEID, err)
		}
	}
	if hasTrustDomain {
		if _, err := spiffeid.TrustDomainFromString(s.ExpectedServerTrustDomain); err != nil {
			return fmt.Errorf("invalid spiffe.expected_server_trust_domain %q: %w", s.ExpectedServerTrustDomain, err)
		}
	}
	return checkDuration("spiffe.initial_fetch_timeout", s.InitialFetchTimeout)
}

func checkDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}
