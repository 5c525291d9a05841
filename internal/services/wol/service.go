// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/probe"
	"github.com/rs/zerolog"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, req models.WakeRequest) (*models.WakeResult, error)
}

// Prober checks whether a host accepts connections.
type Prober interface {
	Probe(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult
}

// Impl implements the WOL Service interface. It holds no per-request state
// and is safe for concurrent use.
type Impl struct {
	resolver   Resolver
	transports []Transport
	prober     Prober
	checkUDP   func() error
	logger     zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		resolver:   net.DefaultResolver,
		transports: DefaultTransports(),
		prober:     probe.New(logger),
		checkUDP:   checkUDP,
		logger:     logger,
	}
}

// NewWithClients creates a new WOL service with custom clients (for testing).
func NewWithClients(logger zerolog.Logger, resolver Resolver, transports []Transport, prober Prober) *Impl {
	return &Impl{
		resolver:   resolver,
		transports: transports,
		prober:     prober,
		logger:     logger,
	}
}

// SendMagicPacket wakes the machine with the given MAC address. host is a
// hostname or IPv4 literal, cidr an optional prefix length selecting the
// subnet broadcast address and port an optional UDP port (default 9).
func SendMagicPacket(ctx context.Context, mac, host, cidr, port string) error {
	result, err := New(zerolog.Nop()).Wake(ctx, models.WakeRequest{
		MACAddress: mac,
		Host:       host,
		CIDR:       cidr,
		Port:       port,
	})
	if err != nil {
		return err
	}
	return result.Error
}

// Wake sends a WOL packet and optionally waits for the target to become available.
//
//nolint:nilerr // errors are stored in the result struct by design
func (s *Impl) Wake(ctx context.Context, req models.WakeRequest) (*models.WakeResult, error) {
	result := &models.WakeResult{}
	tr := newTracer(s.logger, req.Trace)
	start := time.Now()

	tr.step(stageValidate, "wake request mac=%q host=%q cidr=%q port=%q", req.MACAddress, req.Host, req.CIDR, req.Port)

	if err := s.transportAvailable(); err != nil {
		return s.fail(result, tr, stageTransport, err)
	}

	mac, err := ParseMAC(req.MACAddress)
	if err != nil {
		return s.fail(result, tr, stageValidate, err)
	}
	result.MACAddress = mac.String()

	port, err := ParsePort(req.Port)
	if err != nil {
		return s.fail(result, tr, stageValidate, err)
	}

	payload, err := BuildMagicPacket(mac)
	if err != nil {
		return s.fail(result, tr, stagePacket, err)
	}
	tr.step(stagePacket, "created %d byte magic packet for %s", len(payload), mac)

	dst, broadcast, err := s.resolveTarget(ctx, req.Host, req.CIDR, tr)
	if err != nil {
		return s.fail(result, tr, stageResolve, err)
	}

	addr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(dst, uint16(port)))
	result.Destination = addr.String()
	result.Broadcast = broadcast

	s.logger.Info().
		Str("mac", result.MACAddress).
		Str("destination", result.Destination).
		Bool("broadcast", broadcast).
		Msg("sending WOL packet")

	transport, err := sendWithFallback(ctx, s.transports, addr, payload, tr)
	if err != nil {
		return s.fail(result, tr, stageTransport, err)
	}

	result.Transport = transport
	result.PacketSent = true
	s.logger.Info().Str("transport", transport).Msg("WOL packet sent successfully")

	if req.Wait == nil {
		result.WaitDuration = time.Since(start)
		result.Trace = tr.entries
		return result, nil
	}

	wait := withWaitDefaults(*req.Wait)

	s.logger.Info().
		Str("host", req.Host).
		Ints("ports", wait.Ports).
		Dur("timeout", wait.Timeout).
		Msg("waiting for target to become available")

	if err := s.waitForTarget(ctx, req.Host, wait, tr); err != nil {
		result.WaitDuration = time.Since(start)
		return s.fail(result, tr, stageWait, err)
	}

	if wait.StabilizeWait > 0 {
		tr.step(stageWait, "waiting %s for target to stabilize", wait.StabilizeWait.Round(time.Millisecond))
		select {
		case <-ctx.Done():
			result.WaitDuration = time.Since(start)
			return s.fail(result, tr, stageWait, ctx.Err())
		case <-time.After(wait.StabilizeWait):
		}
	}

	result.TargetReady = true
	result.WaitDuration = time.Since(start)
	result.Trace = tr.entries

	s.logger.Info().
		Dur("duration", result.WaitDuration).
		Msg("target is ready")

	return result, nil
}

func (s *Impl) fail(result *models.WakeResult, tr *tracer, stage string, err error) (*models.WakeResult, error) {
	tr.step(stage, "error: %v", err)
	result.Error = err
	result.Trace = tr.entries
	return result, nil
}

func (s *Impl) transportAvailable() error {
	if len(s.transports) == 0 {
		return fmt.Errorf("%w: no transports configured", ErrTransportUnavailable)
	}
	if s.checkUDP != nil {
		if err := s.checkUDP(); err != nil {
			return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
		}
	}
	return nil
}

// resolveTarget returns the destination address for host, replaced by the
// subnet broadcast address when cidr is set.
func (s *Impl) resolveTarget(ctx context.Context, host, cidr string, tr *tracer) (netip.Addr, bool, error) {
	prefix, hasCIDR, err := ParseCIDR(cidr)
	if err != nil {
		return netip.Addr{}, false, err
	}

	addr, ok := parseIPv4(host)
	if !ok {
		tr.step(stageResolve, "resolving host %q", host)
		addr, err = lookupIPv4(ctx, s.resolver, host)
		if err != nil {
			return netip.Addr{}, false, err
		}
		tr.step(stageResolve, "host %q resolved to %s", host, addr)
	}

	if !hasCIDR {
		return addr, false, nil
	}

	broadcast := BroadcastAddress(addr, prefix)
	tr.step(stageSubnet, "CIDR is set to %d, using broadcast address", prefix)
	tr.step(stageSubnet, "netmask=%s network=%s broadcast=%s",
		uint32ToIP(Netmask(prefix)), NetworkAddress(addr, prefix), broadcast)

	return broadcast, true, nil
}

func withWaitDefaults(w models.WaitConfig) models.WaitConfig {
	if len(w.Ports) == 0 {
		w.Ports = probe.DefaultPorts
	}
	if w.Timeout == 0 {
		w.Timeout = 5 * time.Minute
	}
	if w.PollInterval == 0 {
		w.PollInterval = 10 * time.Second
	}
	if w.ProbeTimeout == 0 {
		w.ProbeTimeout = probe.DefaultTimeout
	}
	return w
}

func (s *Impl) waitForTarget(ctx context.Context, host string, cfg models.WaitConfig, tr *tracer) error {
	deadline := time.Now().Add(cfg.Timeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for %s to become reachable", host)
		}

		res := s.prober.Probe(ctx, host, cfg.Ports, cfg.ProbeTimeout)
		if res.IsUp {
			tr.step(stageWait, "%s is reachable on ports %v", host, res.OpenPorts)
			return nil
		}

		s.logger.Debug().Err(res.Error).Msg("target not ready yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}
