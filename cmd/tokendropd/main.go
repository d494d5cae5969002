package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/Algorand-Developer-Retreat/tokendrop/cmd/tokendropd/app"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/commands/server"
)

func main() {
	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".tokendropd")
	home := flag.String("home", defaultHome, "directory to store files under")
	flag.CommandLine.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *home, flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, home string, args []string) error {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "tokendrop")

	switch cmd {
	case "help":
		usage()
		return nil
	case "init":
		return server.InitCmd(app.GenInitOptions, logger, home, args)
	case "start":
		return server.StartCmd(app.GenerateApp, logger, home, args)
	case "version":
		fmt.Println(weave.Version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tokendropd [flags] <command>

Run a token drop ABCI application node.

Commands:
  init     write initial app options into the genesis file
  start    run the ABCI server
  version  print the application version
  help     print this message

Flags:
`)
	flag.CommandLine.SetOutput(os.Stderr)
	flag.PrintDefaults()
}
