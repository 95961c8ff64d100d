package main

import (
	"flag"
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: backtest <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run         Run one strategy and print its report\n")
		fmt.Fprintf(os.Stderr, "  compare     Run several strategies over the same data\n")
		fmt.Fprintf(os.Stderr, "  strategies  List registered strategies\n")
		fmt.Fprintf(os.Stderr, "  symbols     List symbols with stored bars\n")
		fmt.Fprintf(os.Stderr, "  status      Show backtest-server status\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\nRun 'backtest <command> -h' for command options.\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "version":
		fmt.Printf("backtest %s\n", version)
	case "run":
		err = runCmd(args)
	case "compare":
		err = compareCmd(args)
	case "strategies":
		err = strategiesCmd(args)
	case "symbols":
		err = symbolsCmd(args)
	case "status":
		err = statusCmd(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}
