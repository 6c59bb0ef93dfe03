// Command witness discovers and summarizes Witness Protocol attestations.
package main

import (
	"fmt"
	"os"

	"github.com/pennyhailey/witness-protocol/internal/debug"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	debug.Init()

	registry := NewCommandRegistry(VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	registerCommands(registry)

	if err := registry.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "discover",
		Description: "Discover attestations about a subject",
		Usage:       "witness discover <subject> [flags]",
		Examples: []string{
			"witness discover did:plc:subject --witness did:plc:w1",
			"witness discover did:plc:subject --registry did:web:registry.example.org --social",
			"witness discover did:plc:subject --indexer https://indexer.example.org --format json",
			"witness discover did:plc:subject --config witness.yaml --summary",
		},
		Run: discoverCommand,
	})

	r.Register(&Command{
		Name:        "operator",
		Description: "Resolve the current operator of a subject",
		Usage:       "witness operator <subject> [flags]",
		Examples: []string{
			"witness operator did:plc:subject",
			"witness operator did:plc:subject --format json",
		},
		Run: operatorCommand,
	})

	r.Register(&Command{
		Name:        "validate",
		Description: "Validate a record file or a witness configuration file",
		Usage:       "witness validate <file> [flags]",
		Examples: []string{
			"witness validate attestation.json",
			"witness validate operator.cbor --kind operator",
			"witness validate witness.yaml --serve",
		},
		Run: validateCommand,
	})

	r.Register(&Command{
		Name:        "serve",
		Description: "Serve the discovery HTTP API",
		Usage:       "witness serve [flags]",
		Examples: []string{
			"witness serve --config witness.yaml",
			"witness serve --listen 127.0.0.1:9090",
		},
		Run: serveCommand,
	})

	r.Register(&Command{
		Name:        "version",
		Description: "Show version information",
		Usage:       "witness version [flags]",
		Examples: []string{
			"witness version",
			"witness version --verbose",
		},
		Run: func(args []string) error {
			return versionCommand(r.version, args)
		},
	})

	r.Register(&Command{
		Name:        "help",
		Description: "Show help information",
		Usage:       "witness help [command]",
		Examples: []string{
			"witness help",
			"witness help discover",
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				if cmd, ok := r.commands[args[0]]; ok {
					cmd.PrintUsage(stdout)
					return nil
				}
			}
			r.PrintHelp(stdout)
			return nil
		},
	})
}
