package main

import (
	"fmt"
	"runtime"
	rtdebug "runtime/debug"

	"github.com/pennyhailey/witness-protocol/internal/domain"
)

func versionCommand(v VersionInfo, args []string) error {
	fs := newFlagSet("version", `Show version information

USAGE:
    witness version [flags]

EXAMPLES:
    witness version
    witness version --verbose`)
	verbose := fs.BoolP("verbose", "v", false, "Show runtime, record kinds and dependency versions")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "witness %s (commit: %s, built: %s)\n", v.Version, v.Commit, v.Date)
	if !*verbose {
		return nil
	}

	fmt.Fprintln(stdout, "\nRuntime:")
	table := NewTableWriter([]string{"Setting", "Value"})
	table.AddRow([]string{"Go", runtime.Version()})
	table.AddRow([]string{"Platform", runtime.GOOS + "/" + runtime.GOARCH})
	table.Print(stdout)

	fmt.Fprintln(stdout, "\nRecord kinds:")
	kinds := NewTableWriter([]string{"Kind", "Collection"})
	kinds.AddRow([]string{"attestation", domain.KindAttestation.String()})
	kinds.AddRow([]string{"operator", domain.KindOperator.String()})
	kinds.AddRow([]string{"registry", domain.KindRegistry.String()})
	kinds.AddRow([]string{"follow", domain.KindFollow.String()})
	kinds.Print(stdout)

	info, ok := rtdebug.ReadBuildInfo()
	if !ok || len(info.Deps) == 0 {
		return nil
	}
	fmt.Fprintln(stdout, "\nDependencies:")
	deps := NewTableWriter([]string{"Module", "Version"})
	for _, dep := range info.Deps {
		deps.AddRow([]string{dep.Path, dep.Version})
	}
	deps.Print(stdout)
	return nil
}
