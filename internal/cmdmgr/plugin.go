// ABOUTME: Console plugin lifecycle and chat command surface
// ABOUTME: Drives the admin server and the registry from on/off/status/list/toggle commands

package cmdmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-cmdconsole/internal/adminserver"
	"github.com/2389/coven-cmdconsole/internal/host"
	"github.com/2389/coven-cmdconsole/internal/registry"
)

// Plugin metadata.
const (
	ModulePath = "plugins.cmdmgr"
	Name       = "Command Console"
	Version    = "1.0.0"

	// LocalSender identifies the operator's own terminal; it bypasses the admin list.
	LocalSender = "local"
)

// GroupNames are the complete paths of the command group.
var GroupNames = []string{"cmdmgr", "cmd"}

// Registry is the part of the registry store the console drives.
type Registry interface {
	Reconcile(ctx context.Context) (int, error)
	Reset() int
	List() []registry.CommandInfo
	Disabled() []string
	IsDisabled(fullName string) bool
	Toggle(ctx context.Context, actor, fullName string) registry.ToggleResult
}

// Server is the admin server lifecycle.
type Server interface {
	Start(ctx context.Context, host string, port int) (string, error)
	Stop(ctx context.Context) error
	Running() bool
	State() adminserver.State
	Addr() string
}

// Dispatcher resolves command text to live handlers.
type Dispatcher interface {
	Dispatch(text string) []*host.Handler
}

// Reply delivers one message back to whoever issued a command.
type Reply func(text string)

// Config holds the plugin's collaborators and settings.
type Config struct {
	Registry   Registry
	Server     Server
	Dispatcher Dispatcher
	Host       string
	Port       int
	InitDelay  time.Duration
	Admins     []string
	Logger     *slog.Logger
}

// Plugin is the command console.
type Plugin struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	cancelInit context.CancelFunc
	initDone   chan struct{}
}

// New creates the plugin. Call Initialize once it is registered with the host.
func New(cfg Config) *Plugin {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{cfg: cfg, logger: logger.With("component", "cmdmgr")}
}

// Info returns the plugin metadata for host registration.
func (p *Plugin) Info() host.Plugin {
	return host.Plugin{Name: Name, ModulePath: ModulePath, Author: "coven", Version: Version}
}

func handlerName(sub string) string { return "cmdmgr." + sub }

var subcommands = []struct {
	name string
	desc string
}{
	{"on", "start the admin console"},
	{"off", "stop the admin console"},
	{"status", "show admin console status"},
	{"list", "list commands and their state"},
	{"toggle", "enable or disable a command handler"},
}

// Handlers returns the host handlers for the command group and its subcommands.
func (p *Plugin) Handlers() []*host.Handler {
	admin := &host.PermissionFilter{Type: host.PermissionAdmin}
	hs := []*host.Handler{{
		FullName:    handlerName("group"),
		ModulePath:  ModulePath,
		Description: "command console",
		Filters: []host.Filter{
			&host.CommandGroupFilter{Name: GroupNames[0], CompleteNames: GroupNames},
			admin,
		},
	}}
	for _, sc := range subcommands {
		hs = append(hs, &host.Handler{
			FullName:    handlerName(sc.name),
			ModulePath:  ModulePath,
			Description: sc.desc,
			Filters: []host.Filter{
				&host.CommandFilter{Name: sc.name, ParentNames: GroupNames},
				admin,
			},
		})
	}
	return hs
}

// Initialize schedules restoration of the persisted disabled set after the
// configured delay. It returns immediately.
func (p *Plugin) Initialize(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	if p.cancelInit != nil {
		p.cancelInit()
	}
	p.cancelInit, p.initDone = cancel, done
	p.mu.Unlock()

	delay := p.cfg.InitDelay
	p.logger.Info("command console loaded; restoring disabled handlers after delay", "delay", delay)

	go func() {
		defer close(done)
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			p.logger.Info("disabled handler restore cancelled")
			return
		case <-timer.C:
		}

		n, err := p.cfg.Registry.Reconcile(ctx)
		if err != nil {
			p.logger.Error("restoring disabled handlers failed", "error", err)
			return
		}
		p.logger.Info("disabled handler restore complete", "restored", n)
	}()
}

// Initialized is closed when the deferred restore has finished or been cancelled.
// It is nil before Initialize.
func (p *Plugin) Initialized() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initDone
}

// Terminate stops the admin server, cancels a pending restore, and re-enables
// every disabled handler in the host. Persistence is left untouched.
func (p *Plugin) Terminate(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancelInit, p.initDone
	p.cancelInit = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var stopErr error
	if p.cfg.Server != nil {
		stopErr = p.cfg.Server.Stop(ctx)
	}
	n := p.cfg.Registry.Reset()
	p.logger.Info("command console unloaded", "reenabled", n)
	return stopErr
}

// allowed reports whether sender may run console commands.
func (p *Plugin) allowed(sender string) bool {
	if sender == LocalSender || len(p.cfg.Admins) == 0 {
		return true
	}
	return slices.Contains(p.cfg.Admins, sender)
}

// HandleText routes a full command line such as "cmdmgr on" through the
// dispatcher. It returns false when no live console handler matches, so the
// caller can treat the text as someone else's.
func (p *Plugin) HandleText(ctx context.Context, sender, text string, reply Reply) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || !slices.Contains(GroupNames, fields[0]) {
		return false
	}

	args := fields[1:]
	if p.cfg.Dispatcher != nil {
		matched := p.liveHandler(text)
		if matched == nil {
			return false
		}
		// The group catches subcommands whose own handler is not live.
		if matched.FullName == handlerName("group") && len(args) > 0 && p.isSubcommand(args[0]) {
			reply(fmt.Sprintf("command %q is currently disabled", fields[0]+" "+args[0]))
			return true
		}
	}

	p.Handle(ctx, sender, args, reply)
	return true
}

func (p *Plugin) liveHandler(text string) *host.Handler {
	for _, h := range p.cfg.Dispatcher.Dispatch(text) {
		if h.ModulePath == ModulePath {
			return h
		}
	}
	return nil
}

func (p *Plugin) isSubcommand(name string) bool {
	for _, sc := range subcommands {
		if sc.name == name {
			return true
		}
	}
	return false
}

// Handle runs one console subcommand. args excludes the group name.
func (p *Plugin) Handle(ctx context.Context, sender string, args []string, reply Reply) {
	if !p.allowed(sender) {
		p.logger.Warn("console command denied", "sender", sender)
		reply("permission denied: console commands are restricted to admins")
		return
	}
	if len(args) == 0 {
		reply(usage())
		return
	}

	switch args[0] {
	case "on":
		p.handleOn(ctx, reply)
	case "off":
		p.handleOff(ctx, reply)
	case "status":
		reply(p.status())
	case "list":
		reply(FormatList(p.cfg.Registry.List()))
	case "toggle":
		p.handleToggle(ctx, sender, args[1:], reply)
	default:
		reply(usage())
	}
}

func usage() string {
	var b strings.Builder
	b.WriteString("usage: cmdmgr <subcommand>\n")
	for _, sc := range subcommands {
		fmt.Fprintf(&b, "  %-7s %s\n", sc.name, sc.desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Plugin) handleOn(ctx context.Context, reply Reply) {
	if p.cfg.Server.Running() {
		reply("admin console is already running")
		return
	}

	reply("starting admin console, please wait...")
	secret, err := p.cfg.Server.Start(ctx, p.cfg.Host, p.cfg.Port)
	switch {
	case err == nil:
		reply(secret)
		reply(fmt.Sprintf("admin console listening on http://%s; use the secret above to sign in", p.cfg.Server.Addr()))
	case errors.Is(err, adminserver.ErrAlreadyRunning):
		reply("admin console is already running")
	case errors.Is(err, adminserver.ErrPortInUse):
		reply(fmt.Sprintf("failed to start: port %d is already in use", p.cfg.Port))
	case errors.Is(err, adminserver.ErrStartupTimeout):
		reply("failed to start: admin server did not come up in time and was shut down")
	default:
		p.logger.Error("starting admin console failed", "error", err)
		reply(fmt.Sprintf("failed to start: %v", err))
	}
}

func (p *Plugin) handleOff(ctx context.Context, reply Reply) {
	if !p.cfg.Server.Running() {
		reply("admin console is not running")
		return
	}
	reply("stopping admin console...")
	if err := p.cfg.Server.Stop(ctx); err != nil {
		p.logger.Warn("admin console stopped uncleanly", "error", err)
	}
	reply("admin console stopped")
}

func (p *Plugin) handleToggle(ctx context.Context, sender string, args []string, reply Reply) {
	if len(args) != 1 {
		reply("usage: cmdmgr toggle <handler_full_name>")
		return
	}
	name := args[0]
	res := p.cfg.Registry.Toggle(ctx, sender, name)
	if !res.OK() {
		reply(fmt.Sprintf("toggle failed: %s", res.Message))
		return
	}
	if p.cfg.Registry.IsDisabled(name) {
		reply(fmt.Sprintf("%s disabled", name))
	} else {
		reply(fmt.Sprintf("%s enabled", name))
	}
}

func (p *Plugin) status() string {
	disabled := len(p.cfg.Registry.Disabled())
	state := p.cfg.Server.State()
	if state == adminserver.StateRunning {
		return fmt.Sprintf("admin console: %s at http://%s; %d disabled handler(s)", state, p.cfg.Server.Addr(), disabled)
	}
	return fmt.Sprintf("admin console: %s; %d disabled handler(s)", state, disabled)
}

// FormatList renders a snapshot as plain text, one handler per line.
func FormatList(infos []registry.CommandInfo) string {
	if len(infos) == 0 {
		return "no commands registered"
	}
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := "on "
		if !info.Activated {
			mark = "off"
		}
		fmt.Fprintf(&b, "[%s] %s: %s (%s) - %s", mark, info.PluginName, info.Command, info.HandlerFullName, info.Description)
	}
	return b.String()
}
