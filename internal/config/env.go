package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognised by applyEnvOverrides.
const (
	EnvServiceURL        = "WITNESS_SERVICE_URL"
	EnvMirrorDir         = "WITNESS_MIRROR_DIR"
	EnvPageSize          = "WITNESS_PAGE_SIZE"
	EnvMaxPages          = "WITNESS_MAX_PAGES"
	EnvRequestsPerSecond = "WITNESS_REQUESTS_PER_SECOND"
	EnvMaxConcurrency    = "WITNESS_MAX_CONCURRENCY"
	EnvFetchTimeout      = "WITNESS_FETCH_TIMEOUT"
	EnvDeduplicate       = "WITNESS_DEDUPLICATE"
	EnvSocial            = "WITNESS_SOCIAL"
	EnvRegistries        = "WITNESS_REGISTRIES"
	EnvIndexers          = "WITNESS_INDEXERS"
	EnvWorkloadSocket    = "WITNESS_WORKLOAD_SOCKET"
	EnvListenAddr        = "WITNESS_LISTEN_ADDR"
	EnvLogLevel          = "WITNESS_LOG_LEVEL"
	EnvLogFormat         = "WITNESS_LOG_FORMAT"
)

// applyEnvOverrides overrides config values with environment variables if set
// Returns error for invalid environment variable values to fail fast
func applyEnvOverrides(cfg *FileConfig) error {
	// Repository
	if v := os.Getenv(EnvServiceURL); v != "" {
		cfg.Repository.ServiceURL = v
		cfg.Repository.MirrorDir = ""
	}
	if v := os.Getenv(EnvMirrorDir); v != "" {
		cfg.Repository.MirrorDir = v
		cfg.Repository.ServiceURL = ""
	}
	if v := os.Getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPageSize, v, err)
		}
		cfg.Repository.PageSize = n
	}
	if v := os.Getenv(EnvMaxPages); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxPages, v, err)
		}
		cfg.Repository.MaxPages = n
	}
	if v := os.Getenv(EnvRequestsPerSecond); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRequestsPerSecond, v, err)
		}
		cfg.Repository.RequestsPerSecond = f
	}

	// Discovery
	if v := os.Getenv(EnvMaxConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxConcurrency, v, err)
		}
		cfg.Discovery.MaxConcurrency = n
	}
	if v := os.Getenv(EnvFetchTimeout); v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvFetchTimeout, v, err)
		}
		cfg.Discovery.FetchTimeout = v
	}
	if v := os.Getenv(EnvDeduplicate); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDeduplicate, v, err)
		}
		cfg.Discovery.Deduplicate = &b
	}
	if v := os.Getenv(EnvSocial); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSocial, v, err)
		}
		cfg.Discovery.Social = b
	}
	if v := os.Getenv(EnvRegistries); v != "" {
		cfg.Discovery.Registries = splitList(v)
	}
	if v := os.Getenv(EnvIndexers); v != "" {
		cfg.Discovery.Indexers = splitList(v)
	}

	// SPIFFE, HTTP, log
	if v := os.Getenv(EnvWorkloadSocket); v != "" {
		cfg.SPIFFE.WorkloadSocket = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.HTTP.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}

	return nil
}

// splitList parses a comma-separated list, dropping empty items
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseBool parses boolean environment variables
// Accepts: "true", "1", "yes", "on" for true; "false", "0", "no", "off" for false
func parseBool(value string) (bool, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}
