package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	witness "github.com/pennyhailey/witness-protocol"
	"github.com/pennyhailey/witness-protocol/internal/domain"
)

func operatorCommand(args []string) error {
	fs := newFlagSet("operator", `Resolve the current operator of a subject

USAGE:
    witness operator <subject> [flags]

Reads the network.witness.operator records in the subject's repository and
follows their supersedes links. Concurrent chains are listed as conflicting.

EXAMPLES:
    witness operator did:plc:subject
    witness operator did:plc:subject -o json`)
	configPath := addConfigFlag(fs)
	format := addFormatFlag(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one subject required")
	}
	if err := checkFormat(*format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	subject, err := engine.ParseIdentifier(fs.Arg(0))
	if err != nil {
		return err
	}

	result := engine.DiscoverOperator(ctx, subject)
	if *format == "json" {
		return writeJSON(stdout, result)
	}
	printOperator(stdout, result)
	return nil
}

func printOperator(w io.Writer, result witness.OperatorResult) {
	fmt.Fprintf(w, "Subject: %s\n", result.Subject)
	fmt.Fprintf(w, "Operator records: %d\n", len(result.Records))

	res := result.Resolution
	if res == nil {
		fmt.Fprintln(w, "\nNo operator declared")
		printWarnings(w, result.Warnings)
		return
	}

	cur := res.Current
	fmt.Fprintf(w, "\nCurrent operator: %s\n", cur.OperatorID)
	if cur.OperatorName != "" {
		fmt.Fprintf(w, "  Name:    %s\n", cur.OperatorName)
	}
	fmt.Fprintf(w, "  Record:  %s\n", cur.Ref)
	fmt.Fprintf(w, "  Created: %s\n", domain.FormatTimestamp(cur.CreatedAt))
	for _, c := range cur.Constraints {
		fmt.Fprintf(w, "  Constraint: %s\n", c)
	}

	if len(res.Chain) > 1 {
		fmt.Fprintln(w, "\nSupersession chain:")
		table := NewTableWriter([]string{"Created", "Operator", "Record"})
		for _, rec := range res.Chain {
			table.AddRow([]string{domain.FormatTimestamp(rec.CreatedAt), rec.OperatorID.String(), rec.Ref.String()})
		}
		table.Print(w)
	}

	if len(res.Conflicting) > 0 {
		fmt.Fprintln(w, "\nConflicting tips:")
		table := NewTableWriter([]string{"Created", "Operator", "Record"})
		for _, rec := range res.Conflicting {
			table.AddRow([]string{domain.FormatTimestamp(rec.CreatedAt), rec.OperatorID.String(), rec.Ref.String()})
		}
		table.Print(w)
	}

	printWarnings(w, result.Warnings)
}
