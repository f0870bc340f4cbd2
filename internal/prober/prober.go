package prober

import (
	"context"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"linkprobe/internal/logger"
)

const DefaultTimeout = 3 * time.Second

// Prober checks raw TCP reachability of a single endpoint. It does not
// speak any proxy protocol; a completed handshake-free connect counts as
// success.
type Prober struct {
	timeout time.Duration
}

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{timeout: timeout}
}

// Probe makes one best-effort TCP connection attempt. On success it returns
// the connect latency in milliseconds rounded to one decimal; on timeout,
// refusal, DNS failure or any other fault it returns (false, -1). There are
// no retries.
func (p *Prober) Probe(ctx context.Context, server string, port int) (bool, float64) {
	addr := net.JoinHostPort(cleanHost(server), strconv.Itoa(port))

	dialer := net.Dialer{Timeout: p.timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Log.Debugf("TCP probe failed for %s: %v", addr, err)
		return false, -1
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)

	// The result stands regardless of how the release goes.
	if err := conn.Close(); err != nil {
		logger.Log.Debugf("Failed to release connection to %s: %v", addr, err)
	}

	return true, math.Round(latency*10) / 10
}

// cleanHost strips one pair of IPv6 brackets so JoinHostPort can re-add
// them consistently.
func cleanHost(server string) string {
	host := strings.TrimSpace(server)
	host = strings.TrimPrefix(host, "[")
	return strings.TrimSuffix(host, "]")
}
