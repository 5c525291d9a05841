package wol

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProber struct {
	probeFunc func(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult
	calls     int
}

func (m *mockProber) Probe(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult {
	m.calls++
	if m.probeFunc != nil {
		return m.probeFunc(ctx, host, ports, timeout)
	}
	return &models.ProbeResult{Host: host, IsUp: true, OpenPorts: ports}
}

type sentPacket struct {
	dst     string
	payload []byte
}

// capturingTransport records every datagram instead of sending it.
func capturingTransport(sent *[]sentPacket) *mockTransport {
	return &mockTransport{
		name: "datagram",
		sendFunc: func(ctx context.Context, dst *net.UDPAddr, payload []byte) error {
			*sent = append(*sent, sentPacket{dst: dst.String(), payload: payload})
			return nil
		},
	}
}

func TestWake_UnicastDefaultPort(t *testing.T) {
	var sent []sentPacket
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, &mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "00:11:22:33:44:55",
		Host:       "10.0.0.5",
	})

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.True(t, result.PacketSent)
	assert.False(t, result.Broadcast)
	assert.Equal(t, "00-11-22-33-44-55", result.MACAddress)
	assert.Equal(t, "10.0.0.5:9", result.Destination)
	assert.Equal(t, "datagram", result.Transport)
	assert.Nil(t, result.Trace)

	require.Len(t, sent, 1)
	assert.Equal(t, "10.0.0.5:9", sent[0].dst)
	assert.Len(t, sent[0].payload, MagicPacketSize)
}

func TestWake_SubnetBroadcastCustomPort(t *testing.T) {
	var sent []sentPacket
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, &mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "00-11-22-33-44-55",
		Host:       "10.0.0.5",
		CIDR:       "24",
		Port:       "7",
	})

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.True(t, result.PacketSent)
	assert.True(t, result.Broadcast)
	assert.Equal(t, "10.0.0.255:7", result.Destination)

	require.Len(t, sent, 1)
	assert.Equal(t, "10.0.0.255:7", sent[0].dst)
}

func TestWake_ResolvesHostname(t *testing.T) {
	var sent []sentPacket
	resolver := &mockResolver{
		lookupFunc: func(ctx context.Context, network, host string) ([]net.IP, error) {
			return []net.IP{net.ParseIP("192.168.1.10")}, nil
		},
	}
	svc := NewWithClients(testLogger(), resolver, []Transport{capturingTransport(&sent)}, &mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "nas.lan",
		CIDR:       "24",
	})

	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, "192.168.1.255:9", result.Destination)
}

func TestWake_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		req  models.WakeRequest
		want error
	}{
		{
			name: "invalid mac",
			req:  models.WakeRequest{MACAddress: "not-a-mac", Host: "10.0.0.5"},
			want: ErrInvalidMAC,
		},
		{
			name: "five groups",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE", Host: "10.0.0.5"},
			want: ErrInvalidMAC,
		},
		{
			name: "negative cidr",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5", CIDR: "-1"},
			want: ErrInvalidCIDR,
		},
		{
			name: "cidr too large",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5", CIDR: "33"},
			want: ErrInvalidCIDR,
		},
		{
			name: "port zero",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5", Port: "0"},
			want: ErrInvalidPort,
		},
		{
			name: "port too large",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5", Port: "70000"},
			want: ErrInvalidPort,
		},
		{
			name: "unresolvable host",
			req:  models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "missing.lan"},
			want: ErrResolutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{name: "datagram"}
			svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{transport}, &mockProber{})

			result, err := svc.Wake(context.Background(), tt.req)

			require.NoError(t, err)
			assert.False(t, result.PacketSent)
			assert.ErrorIs(t, result.Error, tt.want)
			assert.Equal(t, 0, transport.calls)
		})
	}
}

func TestWake_TransportUnavailable(t *testing.T) {
	t.Run("no transports", func(t *testing.T) {
		svc := NewWithClients(testLogger(), &mockResolver{}, nil, &mockProber{})

		result, err := svc.Wake(context.Background(), models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5"})

		require.NoError(t, err)
		assert.ErrorIs(t, result.Error, ErrTransportUnavailable)
	})

	t.Run("udp check fails", func(t *testing.T) {
		transport := &mockTransport{name: "datagram"}
		svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{transport}, &mockProber{})
		svc.checkUDP = func() error { return errors.New("address family not supported") }

		result, err := svc.Wake(context.Background(), models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5"})

		require.NoError(t, err)
		assert.ErrorIs(t, result.Error, ErrTransportUnavailable)
		assert.Equal(t, "TransportUnavailable", Kind(result.Error))
		assert.Contains(t, result.Error.Error(), "address family not supported")
		assert.Equal(t, 0, transport.calls)
	})
}

func TestWake_SendFailed(t *testing.T) {
	failing := func(name, msg string) *mockTransport {
		return &mockTransport{
			name: name,
			sendFunc: func(ctx context.Context, dst *net.UDPAddr, payload []byte) error {
				return errors.New(msg)
			},
		}
	}
	svc := NewWithClients(testLogger(), &mockResolver{},
		[]Transport{failing("datagram", "permission denied"), failing("broadcast", "network is unreachable")},
		&mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{MACAddress: "AA-BB-CC-DD-EE-FF", Host: "10.0.0.5", CIDR: "24"})

	require.NoError(t, err)
	assert.False(t, result.PacketSent)
	assert.ErrorIs(t, result.Error, ErrSendFailed)
	assert.Contains(t, result.Error.Error(), "network is unreachable")
	assert.Equal(t, "10.0.0.255:9", result.Destination)
}

func TestWake_Trace(t *testing.T) {
	var sent []sentPacket
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, &mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "00:11:22:33:44:55",
		Host:       "192.168.1.10",
		CIDR:       "24",
		Trace:      true,
	})

	require.NoError(t, err)
	require.NoError(t, result.Error)
	require.NotEmpty(t, result.Trace)

	stages := map[string]bool{}
	for _, e := range result.Trace {
		stages[e.Stage] = true
	}
	assert.True(t, stages[stageValidate])
	assert.True(t, stages[stagePacket])
	assert.True(t, stages[stageSubnet])
	assert.True(t, stages[stageTransport])
	assert.Contains(t, result.Trace, models.TraceEntry{
		Stage:  stageSubnet,
		Detail: "netmask=255.255.255.0 network=192.168.1.0 broadcast=192.168.1.255",
	})
}

func TestWake_TraceOnFailure(t *testing.T) {
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{&mockTransport{name: "datagram"}}, &mockProber{})

	result, err := svc.Wake(context.Background(), models.WakeRequest{MACAddress: "GG-BB-CC-DD-EE-FF", Host: "10.0.0.5", Trace: true})

	require.NoError(t, err)
	require.ErrorIs(t, result.Error, ErrInvalidMAC)
	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, stageValidate, last.Stage)
	assert.Contains(t, last.Detail, "invalid MAC address")
}

func TestWake_WaitImmediateSuccess(t *testing.T) {
	var sent []sentPacket
	prober := &mockProber{}
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, prober)

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "192.168.1.100",
		Wait: &models.WaitConfig{
			Ports:        []int{22},
			Timeout:      10 * time.Second,
			PollInterval: time.Second,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.True(t, result.TargetReady)
	assert.Nil(t, result.Error)
	assert.Equal(t, 1, prober.calls)
}

func TestWake_WaitDelayedSuccess(t *testing.T) {
	var sent []sentPacket
	prober := &mockProber{}
	prober.probeFunc = func(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult {
		assert.Equal(t, "192.168.1.100", host)
		return &models.ProbeResult{Host: host, IsUp: prober.calls >= 3, Error: errors.New("connection refused")}
	}
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, prober)

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "192.168.1.100",
		CIDR:       "24",
		Wait: &models.WaitConfig{
			Timeout:      10 * time.Second,
			PollInterval: 10 * time.Millisecond,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.TargetReady)
	assert.Nil(t, result.Error)
	assert.GreaterOrEqual(t, prober.calls, 3)
}

func TestWake_WaitTimeout(t *testing.T) {
	var sent []sentPacket
	prober := &mockProber{
		probeFunc: func(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult {
			return &models.ProbeResult{Host: host, Error: errors.New("connection refused")}
		},
	}
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, prober)

	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "192.168.1.100",
		Wait: &models.WaitConfig{
			Timeout:      50 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.False(t, result.TargetReady)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timeout")
	assert.Empty(t, Kind(result.Error))
}

func TestWake_WaitContextCancelled(t *testing.T) {
	var sent []sentPacket
	prober := &mockProber{
		probeFunc: func(ctx context.Context, host string, ports []int, timeout time.Duration) *models.ProbeResult {
			return &models.ProbeResult{Host: host, Error: errors.New("connection refused")}
		},
	}
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, prober)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := svc.Wake(ctx, models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "192.168.1.100",
		Wait: &models.WaitConfig{
			Timeout:      10 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.PacketSent)
	assert.False(t, result.TargetReady)
	assert.Equal(t, context.Canceled, result.Error)
}

func TestWake_WaitStabilize(t *testing.T) {
	var sent []sentPacket
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{capturingTransport(&sent)}, &mockProber{})

	stabilizeWait := 50 * time.Millisecond
	start := time.Now()
	result, err := svc.Wake(context.Background(), models.WakeRequest{
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Host:       "192.168.1.100",
		Wait: &models.WaitConfig{
			Timeout:       10 * time.Second,
			PollInterval:  10 * time.Millisecond,
			StabilizeWait: stabilizeWait,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.TargetReady)
	assert.GreaterOrEqual(t, time.Since(start), stabilizeWait)
}

func TestWake_ConcurrentRequests(t *testing.T) {
	svc := NewWithClients(testLogger(), &mockResolver{}, []Transport{DatagramTransport{}}, &mockProber{})
	_, addr := listenLoopback(t)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			result, err := svc.Wake(context.Background(), models.WakeRequest{
				MACAddress: "AA:BB:CC:DD:EE:FF",
				Host:       "127.0.0.1",
				Port:       strconv.Itoa(addr.Port),
			})
			if err != nil {
				errs <- err
				return
			}
			errs <- result.Error
		}()
	}

	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestSendMagicPacket_Loopback(t *testing.T) {
	conn, addr := listenLoopback(t)

	err := SendMagicPacket(context.Background(), "00:11:22:33:44:55", "127.0.0.1", "", strconv.Itoa(addr.Port))
	require.NoError(t, err)

	got := readDatagram(t, conn)
	want, err := BuildMagicPacket(MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSendMagicPacket_InvalidMAC(t *testing.T) {
	err := SendMagicPacket(context.Background(), "GG-BB-CC-DD-EE-FF", "127.0.0.1", "", "")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}
