package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/bookkeeper/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
)

func main() {
	// Shell completion: this returns immediately unless the shell is asking
	// for completions.
	cmp := &complete.Command{
		Sub: map[string]*complete.Command{
			"import": {},
			"log":    {},
			"fmt":    {},
		},
	}
	cmp.Complete("bkr")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
