package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/bookkeeper/renderer"
)

type logCmd struct {
	last int
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "display a chronological log of ledger directives" }
func (*logCmd) Usage() string {
	return `bkr log [-n <count>]

  Prints the most recent ledger directives, one line each, in
  chronological order.
`
}

func (p *logCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.last, "n", 20, "Number of directives to show. 0 shows all.")
}

func (p *logCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	start := 0
	if p.last > 0 && ledger.Len() > p.last {
		start = ledger.Len() - p.last
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger %s\n\n", *ledgerFile)
	for i := start; i < ledger.Len(); i++ {
		fmt.Fprintf(&b, "- %s\n", renderer.Directive(ledger.Get(i)))
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
