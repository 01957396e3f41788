// ABOUTME: Entry point for the command console
// ABOUTME: Dispatches serve, disabled, audit, and version subcommands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-cmdconsole/internal/config"
	"github.com/2389/coven-cmdconsole/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                    _                         
  ___ _ __ ___   __| |_ __ ___   __ _ _ __ 
 / __| '_ ' _ \ / _' | '_ ' _ \ / _' | '__|
| (__| | | | | | (_| | | | | | | (_| | |   
 \___|_| |_| |_|\__,_|_| |_| |_|\__, |_|   
                                |___/      
`

func usage() {
	fmt.Println("Usage: cmdmgr <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                  Start the console (reads on/off/status/list from stdin)")
	fmt.Println("  disabled               Print the persisted disabled handler list")
	fmt.Println("  audit [--limit N]      Print recent enable/disable actions")
	fmt.Println("  version                Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "disabled":
		err = runDisabled(ctx)
	case "audit":
		err = runAudit(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openStore() (*store.SQLiteStore, error) {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func runDisabled(ctx context.Context) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	names, err := store.GetStrings(ctx, st, store.KeyInactivatedHandlers)
	if err != nil {
		return fmt.Errorf("reading disabled list: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("no disabled handlers")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// parseLimit accepts "--limit N" and "--limit=N".
func parseLimit(args []string) (int, error) {
	limit := 20
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var raw string
		switch {
		case arg == "--limit" || arg == "-n":
			if i+1 >= len(args) {
				return 0, fmt.Errorf("%s requires a value", arg)
			}
			raw = args[i+1]
			i++
		case strings.HasPrefix(arg, "--limit="):
			raw = strings.TrimPrefix(arg, "--limit=")
		default:
			return 0, fmt.Errorf("unexpected argument: %s", arg)
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid limit %q", raw)
		}
		limit = n
	}
	return limit, nil
}

func runAudit(ctx context.Context, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListAuditLog(ctx, store.AuditFilter{Limit: limit})
	if err != nil {
		return fmt.Errorf("listing audit log: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no audit entries")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		gray.Print(e.Timestamp.Local().Format("2006-01-02 15:04:05") + "  ")
		switch e.Action {
		case store.AuditDisableCommand:
			color.New(color.FgRed).Printf("%-16s", e.Action)
		case store.AuditEnableCommand:
			color.New(color.FgGreen).Printf("%-16s", e.Action)
		default:
			color.New(color.FgYellow).Printf("%-16s", e.Action)
		}
		fmt.Printf(" %s  ", e.TargetID)
		gray.Printf("by %s\n", e.Actor)
	}
	return nil
}
