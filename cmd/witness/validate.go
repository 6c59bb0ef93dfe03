package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/pennyhailey/witness-protocol/internal/adapters/outbound/identity"
	"github.com/pennyhailey/witness-protocol/internal/app"
	"github.com/pennyhailey/witness-protocol/internal/codec"
	"github.com/pennyhailey/witness-protocol/internal/config"
	"github.com/pennyhailey/witness-protocol/internal/domain"
)

var kindAliases = map[string]domain.RecordKind{
	"attestation": domain.KindAttestation,
	"operator":    domain.KindOperator,
	"registry":    domain.KindRegistry,
	"follow":      domain.KindFollow,
}

func validateCommand(args []string) error {
	fs := newFlagSet("validate", `Validate a record file or a witness configuration file

USAGE:
    witness validate <file> [flags]

FILES:
    *.json, *.jsonc, *.cbor   A single record value. The kind comes from
                              its $type field unless --kind is given.
    *.yaml, *.yml             A witness configuration file.

EXAMPLES:
    # Check an attestation before publishing it
    witness validate attestation.json

    # Check a CBOR export as an operator record
    witness validate operator.cbor --kind operator

    # Check a config file, including the serve settings
    witness validate witness.yaml --serve

    # Use in CI pipelines
    if witness validate records/*.json; then
        echo "All records are valid"
    fi`)
	kind := fs.StringP("kind", "k", "", "Record kind: attestation, operator, registry, follow or a full $type")
	serve := fs.Bool("serve", false, "Also validate the http section of a config file")
	format := addFormatFlag(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("file path required")
	}
	if err := checkFormat(*format); err != nil {
		return err
	}

	failed := 0
	for _, path := range fs.Args() {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = validateConfigFile(stdout, path, *serve)
		default:
			err = validateRecordFile(stdout, path, *kind, *format)
		}
		if err != nil {
			fmt.Fprintf(stdout, "✗ %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, fs.NArg())
	}
	return nil
}

func validateConfigFile(w io.Writer, path string, serve bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if serve {
		if err := config.ValidateServe(cfg); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "✓ Valid configuration: %s\n", path)
	if cfg.Repository.MirrorDir != "" {
		fmt.Fprintf(w, "  Repositories: mirror %s\n", cfg.Repository.MirrorDir)
	} else {
		fmt.Fprintf(w, "  Repositories: %s\n", cfg.Repository.ServiceURL)
	}
	fmt.Fprintf(w, "  Known witnesses: %d, registries: %d, indexers: %d, social: %t\n",
		len(cfg.Discovery.KnownWitnesses), len(cfg.Discovery.Registries), len(cfg.Discovery.Indexers), cfg.Discovery.Social)
	if cfg.SPIFFE.Enabled() {
		fmt.Fprintf(w, "  mTLS: Workload API at %s\n", cfg.SPIFFE.WorkloadSocket)
	}
	if serve {
		fmt.Fprintf(w, "  Listen address: %s (mTLS: %t)\n", cfg.HTTP.ListenAddr, cfg.HTTP.MTLS())
	}
	return nil
}

func validateRecordFile(w io.Writer, path, kindFlag, format string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is an explicit CLI argument
	if err != nil {
		return err
	}

	encoding := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc":
		data = jsonc.ToJSON(data)
	case ".cbor":
		encoding = "cbor"
	}

	raw, err := codec.DecodeValue(data, encoding)
	if err != nil {
		return err
	}

	kind, err := recordKind(kindFlag, raw)
	if err != nil {
		return err
	}

	res := app.NewValidator(identity.NewParser()).Validate(kind, raw)
	if format == "json" {
		if err := writeJSON(w, struct {
			File string `json:"file"`
			app.ValidationResult
		}{path, res}); err != nil {
			return err
		}
		return res.Err()
	}

	if !res.Valid {
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		return res.Err()
	}
	fmt.Fprintf(w, "✓ %s: valid %s (signal weight %.1f)\n", path, kind, res.SignalWeight)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  ⚠ %s\n", warn)
	}
	return nil
}

func recordKind(flag string, raw map[string]any) (domain.RecordKind, error) {
	if flag != "" {
		if k, ok := kindAliases[flag]; ok {
			return k, nil
		}
		return domain.RecordKind(flag), nil
	}
	t, ok := raw["$type"].(string)
	if !ok || t == "" {
		return "", fmt.Errorf("record has no $type; pass --kind")
	}
	return domain.RecordKind(t), nil
}
