package wol

import (
	"context"
	"fmt"
	"io"
	"net"

	"go.uber.org/multierr"
)

// Transport sends a single UDP datagram.
type Transport interface {
	Name() string
	Send(ctx context.Context, dst *net.UDPAddr, payload []byte) error
}

// DatagramTransport writes the payload over a UDP association dialed to the
// destination. Some platforms reject broadcast destinations on such sockets.
type DatagramTransport struct{}

// Name implements Transport.
func (DatagramTransport) Name() string { return "datagram" }

// Send implements Transport.
func (DatagramTransport) Send(ctx context.Context, dst *net.UDPAddr, payload []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", dst.String())
	if err != nil {
		return fmt.Errorf("dialing %s: %w", dst, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	n, err := conn.Write(payload)
	if err != nil {
		return fmt.Errorf("writing to %s: %w", dst, err)
	}
	if n < len(payload) {
		return fmt.Errorf("writing to %s: sent %d of %d bytes: %w", dst, n, len(payload), io.ErrShortWrite)
	}

	return nil
}

// BroadcastTransport sends from an unconnected UDP socket with SO_BROADCAST
// enabled, which subnet broadcast destinations require on most systems.
type BroadcastTransport struct{}

// Name implements Transport.
func (BroadcastTransport) Name() string { return "broadcast" }

// Send implements Transport.
func (BroadcastTransport) Send(ctx context.Context, dst *net.UDPAddr, payload []byte) error {
	lc := net.ListenConfig{Control: enableBroadcast}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("opening broadcast socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	n, err := conn.WriteTo(payload, dst)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", dst, err)
	}
	if n < len(payload) {
		return fmt.Errorf("sending to %s: sent %d of %d bytes: %w", dst, n, len(payload), io.ErrShortWrite)
	}

	return nil
}

// DefaultTransports returns the transports in the order they are attempted.
func DefaultTransports() []Transport {
	return []Transport{DatagramTransport{}, BroadcastTransport{}}
}

// checkUDP verifies that the environment can open a UDP socket at all.
func checkUDP() error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return err
	}
	return conn.Close()
}

// sendWithFallback tries each transport in order and returns the name of the
// first one that succeeds. If all fail the errors are combined.
func sendWithFallback(ctx context.Context, transports []Transport, dst *net.UDPAddr, payload []byte, tr *tracer) (string, error) {
	var errs error

	for _, t := range transports {
		tr.step(stageTransport, "sending %d bytes to %s using %s transport", len(payload), dst, t.Name())

		err := t.Send(ctx, dst, payload)
		if err == nil {
			tr.step(stageTransport, "magic packet has been sent to %s", dst)
			return t.Name(), nil
		}

		tr.step(stageTransport, "%s transport failed: %v", t.Name(), err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", ErrSendFailed, errs)
}
