// Package cmd implements the CLI application to import brokerage statements
// into a bookkeeping ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/etnz/bookkeeper"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&logCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", "ledger.jsonl", "Path to the ledger file containing directives (JSONL format)")
var configFile = flag.String("config", "bookkeeper.yaml", "Path to the importer configuration file")

// DecodeLedger reads the app ledger file. A missing file is an empty ledger.
func DecodeLedger() (*bookkeeper.Ledger, error) {
	f, err := os.Open(*ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("warning, ledger file does not exist, starting from an empty ledger")
		return bookkeeper.NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()
	return bookkeeper.DecodeLedger(f)
}

// AppendDirectives appends directives to the app ledger file.
func AppendDirectives(ds []bookkeeper.Directive) error {
	f, err := os.OpenFile(*ledgerFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()

	for _, d := range ds {
		if err := bookkeeper.EncodeDirective(f, d); err != nil {
			return fmt.Errorf("could not write to ledger file %q: %w", *ledgerFile, err)
		}
	}
	return nil
}
