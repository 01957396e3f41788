// ABOUTME: serve subcommand: wires store, host, registry, admin server, console plugin, and frontends
// ABOUTME: Runs a local stdin console and shuts everything down on SIGINT/SIGTERM

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-cmdconsole/internal/adminserver"
	"github.com/2389/coven-cmdconsole/internal/auth"
	"github.com/2389/coven-cmdconsole/internal/cmdmgr"
	"github.com/2389/coven-cmdconsole/internal/config"
	"github.com/2389/coven-cmdconsole/internal/host"
	"github.com/2389/coven-cmdconsole/internal/matrixbot"
	"github.com/2389/coven-cmdconsole/internal/registry"
	"github.com/2389/coven-cmdconsole/internal/store"
	"github.com/2389/coven-cmdconsole/internal/webui"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Admin UI:  %s:%d (start with `cmdmgr on`)\n", cfg.WebUI.Host, cfg.WebUI.Port)
	if cfg.Matrix.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Matrix:    ")
		cyan.Println(cfg.Matrix.UserID)
	}
	fmt.Println()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	fw := host.New(logger.With("component", "host"))
	fw.RegisterManifest(cfg.Plugins)

	reg := registry.New(registry.Config{
		Host:    fw,
		Plugins: fw,
		KV:      st,
		Audit:   st,
		Logger:  logger.With("component", "registry"),
	})

	server := adminserver.New(adminserver.Config{
		Handler: func(secrets auth.SecretSource) http.Handler {
			return webui.NewRouter(webui.Config{Commands: reg, Secrets: secrets, Logger: logger})
		},
		Logger:       logger,
		PollAttempts: cfg.WebUI.StartupAttempts,
		PollInterval: cfg.WebUI.PollInterval,
		StopTimeout:  cfg.WebUI.StopTimeout,
	})

	console := cmdmgr.New(cmdmgr.Config{
		Registry:   reg,
		Server:     server,
		Dispatcher: fw,
		Host:       cfg.WebUI.Host,
		Port:       cfg.WebUI.Port,
		InitDelay:  cfg.InitDelayDuration(),
		Admins:     cfg.Console.Admins,
		Logger:     logger,
	})
	fw.RegisterPlugin(console.Info(), console.Handlers()...)
	console.Initialize(ctx)

	errCh := make(chan error, 1)
	if cfg.Matrix.Enabled {
		bot, err := matrixbot.New(cfg.Matrix, console, logger)
		if err != nil {
			return fmt.Errorf("creating matrix bot: %w", err)
		}
		go func() { errCh <- bot.Run(ctx) }()
	}

	go runConsole(ctx, os.Stdin, os.Stdout, console, fw)

	logger.Info("command console running", "handlers", len(fw.Handlers()))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := console.Terminate(shutdownCtx); err != nil {
		logger.Warn("console terminate", "error", err)
	}
	return runErr
}

// subcommandNames may be typed at the local console without the group name.
var subcommandNames = []string{"on", "off", "status", "list", "toggle"}

// runConsole reads command lines from r until EOF or ctx is done. Console
// lines go to the plugin; anything else is reported against the live host.
func runConsole(ctx context.Context, r io.Reader, w io.Writer, console *cmdmgr.Plugin, d cmdmgr.Dispatcher) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := consoleLine(scanner.Text())
		if line == "" {
			continue
		}

		reply := func(text string) { fmt.Fprintln(w, text) }
		if console.HandleText(ctx, cmdmgr.LocalSender, line, reply) {
			continue
		}

		matched := d.Dispatch(line)
		if len(matched) == 0 {
			fmt.Fprintf(w, "no active handler for %q\n", line)
			continue
		}
		names := make([]string, 0, len(matched))
		for _, h := range matched {
			names = append(names, h.FullName)
		}
		fmt.Fprintf(w, "would dispatch to %s\n", strings.Join(names, ", "))
	}
}

// consoleLine normalizes a typed line, prefixing bare subcommands with the group.
func consoleLine(raw string) string {
	line := strings.Join(strings.Fields(raw), " ")
	first, _, _ := strings.Cut(line, " ")
	if slices.Contains(subcommandNames, first) {
		return cmdmgr.GroupNames[0] + " " + line
	}
	return line
}
