package wol

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "colon upper", input: "AA:BB:CC:DD:EE:FF", want: "AA-BB-CC-DD-EE-FF"},
		{name: "dash lower", input: "aa-bb-cc-dd-ee-ff", want: "AA-BB-CC-DD-EE-FF"},
		{name: "mixed separators", input: "00:11-22:33-44:55", want: "00-11-22-33-44-55"},
		{name: "already normalized", input: "00-11-22-33-44-55", want: "00-11-22-33-44-55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMAC(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMAC_Idempotent(t *testing.T) {
	once, err := NormalizeMAC("de:ad:be:ef:00:01")
	require.NoError(t, err)

	twice, err := NormalizeMAC(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestNormalizeMAC_Invalid(t *testing.T) {
	inputs := []string{
		"not-a-mac",
		"AA-BB-CC-DD-EE",
		"GG-BB-CC-DD-EE-FF",
		"AA-BB-CC-DD-EE-FF-00",
		"AABBCCDDEEFF",
		" AA-BB-CC-DD-EE-FF",
		"AA.BB.CC.DD.EE.FF",
		"",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizeMAC(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMAC)
			assert.Equal(t, "InvalidMac", Kind(err))
		})
	}
}

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("00:11:22:33:44:55")
	require.NoError(t, err)

	assert.Equal(t, MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, mac)
	assert.Equal(t, "00-11-22-33-44-55", mac.String())
	assert.Equal(t, net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, mac.HardwareAddr())
}

func TestParseMAC_SameAddressForEquivalentForms(t *testing.T) {
	a, err := ParseMAC("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	b, err := ParseMAC("aa-bb-cc-dd-ee-ff")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "AA-BB-CC-DD-EE-FF", a.String())
}
