package wol

import (
	"fmt"

	"github.com/mdlayher/wol"
)

// MagicPacketSize is the length of a magic packet without a password.
const MagicPacketSize = 6 + 16*6

// BuildMagicPacket returns 6 bytes of 0xFF followed by mac repeated 16 times.
func BuildMagicPacket(mac MACAddress) ([]byte, error) {
	p := &wol.MagicPacket{Target: mac.HardwareAddr()}

	b, err := p.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshalling magic packet: %w", err)
	}
	if len(b) != MagicPacketSize {
		return nil, fmt.Errorf("magic packet has %d bytes, want %d", len(b), MagicPacketSize)
	}

	return b, nil
}
