// ABOUTME: TCP port probe used for conflict detection and readiness polling
// ABOUTME: Treats refused connections and timeouts as a free port

package adminserver

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"syscall"
	"time"
)

// ProbeFunc reports whether something accepts TCP connections at addr.
type ProbeFunc func(addr string, timeout time.Duration) bool

// probeHost maps wildcard bind addresses to loopback, since a wildcard
// listener is reachable there.
func probeHost(host string) string {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		return "127.0.0.1"
	}
	return host
}

func probeAddr(host string, port int) string {
	return net.JoinHostPort(probeHost(host), strconv.Itoa(port))
}

// dialProbe connects to addr. A refused connection or a timeout means nothing
// is listening; any other dial error is reported as in use.
func dialProbe(logger *slog.Logger) ProbeFunc {
	return func(addr string, timeout time.Duration) bool {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err == nil {
			_ = conn.Close()
			return true
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return false
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false
		}
		logger.Debug("port probe failed, assuming in use", "addr", addr, "error", err)
		return true
	}
}
