package wol

import (
	"bytes"
	"testing"

	"github.com/mdlayher/wol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMagicPacket(t *testing.T) {
	macs := []MACAddress{
		{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}

	for _, mac := range macs {
		t.Run(mac.String(), func(t *testing.T) {
			p, err := BuildMagicPacket(mac)
			require.NoError(t, err)

			require.Len(t, p, MagicPacketSize)
			assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), p[:6])
			for i := 6; i < len(p); i += 6 {
				assert.Equal(t, mac[:], p[i:i+6], "block at offset %d", i)
			}
		})
	}
}

func TestBuildMagicPacket_RoundTrip(t *testing.T) {
	mac, err := ParseMAC("de:ad:be:ef:ca:fe")
	require.NoError(t, err)

	p, err := BuildMagicPacket(mac)
	require.NoError(t, err)

	var decoded wol.MagicPacket
	require.NoError(t, decoded.UnmarshalBinary(p))
	assert.Equal(t, mac.HardwareAddr(), decoded.Target)
	assert.Empty(t, decoded.Password)
}
