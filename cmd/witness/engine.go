package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	witness "github.com/pennyhailey/witness-protocol"
	"github.com/pennyhailey/witness-protocol/internal/debug"
)

// EnvConfig names the config file used when --config is not given.
const EnvConfig = "WITNESS_CONFIG"

func addConfigFlag(fs *pflag.FlagSet) *string {
	return fs.StringP("config", "c", os.Getenv(EnvConfig),
		"Path to the witness config file (default $"+EnvConfig+", else built-in defaults)")
}

func addFormatFlag(fs *pflag.FlagSet) *string {
	return fs.StringP("format", "o", "text", "Output format: text or json")
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (use 'text' or 'json')", format)
	}
}

// openEngine loads the config at path and creates an engine logging to stderr.
func openEngine(ctx context.Context, path string) (*witness.Engine, error) {
	cfg, err := witness.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := debug.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, err
	}
	return witness.New(ctx, cfg, witness.WithLogger(logger))
}

// sourceFlags selects discovery channels on top of the configured defaults.
type sourceFlags struct {
	fs         *pflag.FlagSet
	witnesses  *[]string
	registries *[]string
	indexers   *[]string
	social     *bool
	raw        *bool
}

func addSourceFlags(fs *pflag.FlagSet) *sourceFlags {
	return &sourceFlags{
		fs:         fs,
		witnesses:  fs.StringSliceP("witness", "w", nil, "Known witness identifier (repeatable, comma separated)"),
		registries: fs.StringSliceP("registry", "r", nil, "Registry identifier (repeatable, comma separated)"),
		indexers:   fs.StringSliceP("indexer", "i", nil, "Indexer base URL (repeatable, comma separated)"),
		social:     fs.Bool("social", false, "Derive candidate witnesses from the subject's follows"),
		raw:        fs.Bool("raw", false, "Keep every copy of a record instead of deduplicating"),
	}
}

// apply overrides the defaults with every flag that was set on the command line.
func (s *sourceFlags) apply(opts witness.DiscoverOptions) witness.DiscoverOptions {
	if s.fs.Changed("witness") {
		opts.KnownWitnesses = toIdentifiers(*s.witnesses)
	}
	if s.fs.Changed("registry") {
		opts.Registries = toIdentifiers(*s.registries)
	}
	if s.fs.Changed("indexer") {
		opts.Indexers = nil
		for _, u := range *s.indexers {
			opts.Indexers = append(opts.Indexers, witness.IndexerTarget{BaseURL: strings.TrimSpace(u)})
		}
	}
	if s.fs.Changed("social") {
		opts.DiscoverWitnessesSocially = *s.social
	}
	if s.fs.Changed("raw") {
		opts.Deduplicate = !*s.raw
	}
	return opts
}

func toIdentifiers(ss []string) []witness.Identifier {
	var out []witness.Identifier
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, witness.Identifier(s))
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  ⚠ %s\n", msg)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
