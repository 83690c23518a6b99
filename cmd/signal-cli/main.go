// Command signal-cli is the runtime's operator CLI. Its one subcommand,
// "dlq inspect", prints the configured dead-letter queue's contents as
// indented JSON. Grounded on the teacher's cmd/ocx-cli/main.go: a bare
// os.Args switch, no flag-parsing library, explicit usage text and exit
// codes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cornellsh/signal-client/internal/config"
	"github.com/cornellsh/signal-client/internal/dlq"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dlq":
		cmdDLQ(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`signal-cli

Usage: signal-cli <command> [subcommand]

Commands:
  dlq inspect   Print the dead-letter queue contents as indented JSON
  help          Show this help

Environment:
  CONFIG_PATH   Path to config.yaml (default "config.yaml")`)
}

func cmdDLQ(args []string) {
	if len(args) < 1 || args[0] != "inspect" {
		fmt.Fprintln(os.Stderr, "Usage: signal-cli dlq inspect")
		os.Exit(1)
	}

	settings := config.Get()
	ctx := context.Background()

	queue, err := dlq.New(ctx, dlq.BackendConfig{
		Backend:    settings.Storage.DLQBackend,
		SQLitePath: settings.Storage.SQLiteDB,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "signal-cli: opening dlq: %v\n", err)
		os.Exit(1)
	}
	defer queue.Close()

	entries, err := queue.Inspect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signal-cli: inspecting dlq: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		fmt.Fprintf(os.Stderr, "signal-cli: encoding output: %v\n", err)
		os.Exit(1)
	}
}
