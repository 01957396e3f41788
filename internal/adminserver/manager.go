// ABOUTME: Lifecycle manager for the admin HTTP server
// ABOUTME: Handles port probing, secret issuance, readiness polling, and bounded shutdown

package adminserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/2389/coven-cmdconsole/internal/auth"
)

var (
	ErrAlreadyRunning = errors.New("admin server already running")
	ErrPortInUse      = errors.New("port already in use")
	ErrStartupTimeout = errors.New("admin server did not become reachable")
	ErrServerExited   = errors.New("admin server exited during startup")
	ErrStartAborted   = errors.New("admin server start aborted by stop")
)

// State is the manager's lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Defaults for Config.
const (
	DefaultProbeTimeout = time.Second
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 10
	DefaultStopTimeout  = 5 * time.Second
)

// Config configures a Manager. Zero durations and counts take the defaults.
type Config struct {
	// Handler builds the HTTP handler for each server instance. It receives
	// the manager as the secret source for the auth gate.
	Handler func(secrets auth.SecretSource) http.Handler
	Logger  *slog.Logger

	ProbeTimeout time.Duration
	PollInterval time.Duration
	PollAttempts int
	StopTimeout  time.Duration

	// Probe overrides the TCP dial probe.
	Probe ProbeFunc
}

// Manager supervises at most one admin server instance.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	// mu serializes Start and Stop. Readers use the atomics below.
	mu         sync.Mutex
	srv        *http.Server
	done       chan struct{}
	instanceID string

	// stopReq lets Stop interrupt a Start that holds mu while polling.
	stopReq chan struct{}

	state  atomic.Int32
	secret atomic.String
	addr   atomic.String
}

// New creates a stopped Manager.
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	logger := cfg.Logger.With("component", "adminserver")
	if cfg.Probe == nil {
		cfg.Probe = dialProbe(logger)
	}
	return &Manager{cfg: cfg, logger: logger, stopReq: make(chan struct{}, 1)}
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Running reports whether the server is up and has a secret.
func (m *Manager) Running() bool { return m.State() == StateRunning }

// Secret returns the current session secret, or "" when no server is up.
func (m *Manager) Secret() string { return m.secret.Load() }

// Addr returns the bound listen address while a server instance exists.
func (m *Manager) Addr() string { return m.addr.Load() }

func (m *Manager) setState(s State) { m.state.Store(int32(s)) }

// Start brings up the admin server on host:port and returns the new session
// secret. Port 0 binds an ephemeral port and skips the conflict probe.
func (m *Manager) Start(ctx context.Context, host string, port int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateStopped {
		return "", ErrAlreadyRunning
	}
	select {
	case <-m.stopReq:
	default:
	}
	m.setState(StateStarting)

	listenAddr := net.JoinHostPort(host, strconv.Itoa(port))
	if port != 0 && m.cfg.Probe(probeAddr(host, port), m.cfg.ProbeTimeout) {
		m.setState(StateStopped)
		m.logger.Warn("admin server port in use", "addr", listenAddr)
		return "", fmt.Errorf("%w: %s", ErrPortInUse, listenAddr)
	}

	secret, err := newSecret()
	if err != nil {
		m.setState(StateStopped)
		return "", err
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		m.setState(StateStopped)
		if errors.Is(err, syscall.EADDRINUSE) {
			return "", fmt.Errorf("%w: %s", ErrPortInUse, listenAddr)
		}
		return "", fmt.Errorf("listening on %s: %w", listenAddr, err)
	}

	var handler http.Handler = http.NotFoundHandler()
	if m.cfg.Handler != nil {
		handler = m.cfg.Handler(m)
	}

	m.instanceID = uuid.New().String()
	m.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.done = make(chan struct{})
	m.secret.Store(secret)
	m.addr.Store(ln.Addr().String())

	logger := m.logger.With("instance", m.instanceID, "addr", ln.Addr().String())
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		logger.Info("admin server serving")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server failed", "error", err)
		}
	}(m.srv, m.done)

	_, boundPort, _ := net.SplitHostPort(ln.Addr().String())
	readyAddr := net.JoinHostPort(probeHost(host), boundPort)

	for attempt := 1; attempt <= m.cfg.PollAttempts; attempt++ {
		if m.cfg.Probe(readyAddr, m.cfg.ProbeTimeout) {
			m.setState(StateRunning)
			logger.Info("admin server started", "attempts", attempt)
			return secret, nil
		}

		select {
		case <-ctx.Done():
			m.stopLocked(context.Background())
			return "", fmt.Errorf("starting admin server: %w", ctx.Err())
		case <-m.done:
			m.stopLocked(context.Background())
			return "", ErrServerExited
		case <-m.stopReq:
			logger.Info("admin server start aborted")
			m.stopLocked(context.Background())
			return "", ErrStartAborted
		case <-time.After(m.cfg.PollInterval):
		}
	}

	logger.Error("admin server not reachable, shutting down", "attempts", m.cfg.PollAttempts)
	m.stopLocked(context.Background())
	return "", ErrStartupTimeout
}

// Stop shuts the server down. It is a no-op when already stopped, and always
// leaves the manager Stopped. A Start still polling for readiness is aborted.
func (m *Manager) Stop(ctx context.Context) error {
	if m.State() == StateStarting {
		select {
		case m.stopReq <- struct{}{}:
		default:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateStopped {
		return nil
	}
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	m.setState(StateStopping)
	m.secret.Store("")

	srv, done := m.srv, m.done
	logger := m.logger.With("instance", m.instanceID)
	defer func() {
		m.srv, m.done, m.instanceID = nil, nil, ""
		m.addr.Store("")
		m.setState(StateStopped)
	}()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.cfg.StopTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful admin server shutdown failed, closing", "error", err)
		_ = srv.Close()
		shutdownErr = fmt.Errorf("shutting down admin server: %w", err)
	}

	select {
	case <-done:
		logger.Info("admin server stopped")
	case <-time.After(m.cfg.StopTimeout):
		logger.Warn("admin server worker did not exit in time", "timeout", m.cfg.StopTimeout)
	}
	return shutdownErr
}

// newSecret returns 16 random bytes, hex encoded.
func newSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
