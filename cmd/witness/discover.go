package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	witness "github.com/pennyhailey/witness-protocol"
	"github.com/pennyhailey/witness-protocol/internal/domain"
)

func discoverCommand(args []string) error {
	fs := newFlagSet("discover", `Discover attestations about a subject

USAGE:
    witness discover <subject> [flags]

Sources given on the command line replace the ones in the config file.
Unreachable witnesses, registries and indexers are reported as warnings;
whatever was collected is still printed.

EXAMPLES:
    # Ask two known witnesses
    witness discover did:plc:subject --witness did:plc:w1,did:plc:w2

    # Registry members plus the subject's follows
    witness discover did:plc:subject --registry did:web:registry.example.org --social

    # Summary only, as JSON
    witness discover did:plc:subject --indexer https://indexer.example.org --summary -o json`)
	configPath := addConfigFlag(fs)
	sources := addSourceFlags(fs)
	format := addFormatFlag(fs)
	summaryOnly := fs.Bool("summary", false, "Print the summary instead of the attestations")

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

	result := engine.Discover(ctx, subject, sources.apply(engine.DiscoverOptions()))

	if *summaryOnly {
		summary := witness.Summarize(result.Attestations, subject)
		if *format == "json" {
			return writeJSON(stdout, struct {
				witness.Summary
				Warnings []string `json:"warnings"`
			}{summary, result.Warnings})
		}
		printSummary(stdout, summary)
		printWarnings(stdout, result.Warnings)
		return nil
	}

	if *format == "json" {
		return writeJSON(stdout, result)
	}
	printDiscovery(stdout, result)
	return nil
}

func printDiscovery(w io.Writer, result witness.DiscoveryResult) {
	fmt.Fprintf(w, "Subject: %s\n", result.Subject)
	fmt.Fprintf(w, "Attestations: %d (social %d, registry %d, indexer %d)\n\n",
		len(result.Attestations), result.Sources.Social, result.Sources.Registry, result.Sources.Indexer)

	if len(result.Attestations) > 0 {
		table := NewTableWriter([]string{"Created", "Witness", "Sentiment", "Category", "Claim", "Seen via"})
		for _, a := range result.Attestations {
			table.AddRow([]string{
				domain.FormatTimestamp(a.CreatedAt),
				a.Witness.String(),
				orDash(string(a.Sentiment)),
				a.ClaimCategory.Label(),
				truncate(a.Claim, 48),
				seenVia(a.SeenVia),
			})
		}
		table.Print(w)
	}

	printWarnings(w, result.Warnings)
}

func printSummary(w io.Writer, s witness.Summary) {
	fmt.Fprintf(w, "Subject: %s\n\n", s.Subject)

	table := NewTableWriter([]string{"Metric", "Value"})
	table.AddRow([]string{"Attestations", fmt.Sprint(s.TotalAttestations)})
	table.AddRow([]string{"Positive", fmt.Sprint(s.PositiveCount)})
	table.AddRow([]string{"Negative", fmt.Sprint(s.NegativeCount)})
	table.AddRow([]string{"Neutral", fmt.Sprint(s.NeutralCount)})
	table.AddRow([]string{"Distinct witnesses", fmt.Sprint(s.DistinctWitnesses)})
	table.AddRow([]string{"Contesting", fmt.Sprint(s.ContestedCount)})
	table.AddRow([]string{"Record warnings", fmt.Sprint(s.RecordWarnings)})
	if s.Earliest != nil {
		table.AddRow([]string{"Earliest", domain.FormatTimestamp(*s.Earliest)})
	}
	if s.Latest != nil {
		table.AddRow([]string{"Latest", domain.FormatTimestamp(*s.Latest)})
	}
	table.Print(w)

	categories := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range categories {
		fmt.Fprintf(w, "  %-12s %d\n", c, s.ByCategory[c])
	}
}

func seenVia(prov []domain.Provenance) string {
	channels := make([]string, 0, len(prov))
	seen := make(map[domain.Channel]bool)
	for _, p := range prov {
		if !seen[p.Channel] {
			seen[p.Channel] = true
			channels = append(channels, string(p.Channel))
		}
	}
	return strings.Join(channels, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
