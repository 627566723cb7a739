package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/booksdb/internal/cli"
	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every cli subcommand.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	cfg := config.NewConfig()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		entrypoint.Run(cfg, Version)
		return
	}

	var cmd command
	switch os.Args[1] {
	case "shell":
		cmd = cli.NewShellCommand(cfg)
	case "seed":
		cmd = cli.NewSeedCommand(cfg)
	case "reconcile":
		cmd = cli.NewReconcileCommand(cfg)
	case "version":
		fmt.Printf("booksdb %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve      Start the HTTP API (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  shell      Interactive catalog console\n")
	fmt.Fprintf(os.Stderr, "  seed       Load the sample catalog\n")
	fmt.Fprintf(os.Stderr, "  reconcile  Recompute stored average ratings (document backend)\n")
	fmt.Fprintf(os.Stderr, "  version    Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
