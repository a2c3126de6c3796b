package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/bookkeeper/renderer"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "extract directives from brokerage statement files" }
func (*importCmd) Usage() string {
	return `bkr import <statement files...>

  Runs each statement through its configured adapter, assembles bookkeeping
  directives against the existing ledger, appends them to the ledger file and
  prints an import report. Rows already recorded (same source id) are skipped,
  so re-importing a statement is safe.

Usage Examples:
# Import an Interactive Brokers activity export.
$ bkr import ActivityStatement.csv

`
}

func (p *importCmd) SetFlags(f *flag.FlagSet) {}

func (p *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	files := f.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no statement files given")
		return subcommands.ExitUsageError
	}

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	ledger, err := DecodeLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	extractor, err := cfg.Extractor(ledger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", filename, err)
			return subcommands.ExitFailure
		}

		directives, report, err := extractor.Extract(filename, content, ledger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error extracting %q: %v\n", filename, err)
			return subcommands.ExitFailure
		}

		if err := AppendDirectives(directives); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		// Later statements in the same run see what this one produced.
		ledger.Append(directives...)

		printMarkdown(renderer.RenderReport(report))
		for _, w := range report.Mismatches {
			printWarning("%s", w)
		}
		for _, u := range report.Unmatched {
			printWarning("%s", u)
		}
	}
	return subcommands.ExitSuccess
}
