// Package probe checks whether hosts are reachable on common service ports.
package probe

import (
	"context"
	"errors"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultPorts are probed when no ports are configured: RDP, SSH, HTTP, HTTPS.
var DefaultPorts = []int{3389, 22, 80, 443}

// DefaultTimeout is the per-connection timeout.
const DefaultTimeout = 3 * time.Second

// Service defines the interface for reachability checks.
type Service interface {
	Reachable(ctx context.Context, host string, port int, timeout time.Duration) bool
	Probe(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult
}

// Dialer allows mocking TCP connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Impl implements the probe Service interface.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a new probe service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		dialer: &net.Dialer{},
		logger: logger,
	}
}

// NewWithDialer creates a new probe service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{
		dialer: dialer,
		logger: logger,
	}
}

// ProbeReachable reports whether a TCP connection to host:port succeeds
// within timeout.
func ProbeReachable(host string, port int, timeout time.Duration) bool {
	return New(zerolog.Nop()).Reachable(context.Background(), host, port, timeout)
}

// Reachable reports whether a TCP connection to host:port succeeds within timeout.
func (s *Impl) Reachable(ctx context.Context, host string, port int, timeout time.Duration) bool {
	return s.dial(ctx, host, port, timeout) == nil
}

// Probe connects to every port concurrently. The host is up if any port
// accepts a connection.
func (s *Impl) Probe(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult {
	result := &models.ProbeResult{Host: host}

	if len(ports) == 0 {
		ports = DefaultPorts
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var mu sync.Mutex
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	for _, port := range ports {
		g.Go(func() error {
			err := s.dial(gctx, host, port, timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				return nil
			}
			result.OpenPorts = append(result.OpenPorts, port)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(result.OpenPorts)
	result.IsUp = len(result.OpenPorts) > 0
	if !result.IsUp {
		result.Error = lastErr
		if result.Error == nil {
			result.Error = errors.New("no port answered")
		}
	}

	s.logger.Debug().
		Str("host", host).
		Bool("up", result.IsUp).
		Ints("open_ports", result.OpenPorts).
		Msg("probe completed")

	return result
}

func (s *Impl) dial(ctx context.Context, host string, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}
