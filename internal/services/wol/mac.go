package wol

import (
	"encoding/hex"
	"fmt"
	"net"
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9A-F]{2}-){5}[0-9A-F]{2}$`)

// MACAddress is a 6-octet hardware address.
type MACAddress [6]byte

// String returns the canonical AA-BB-CC-DD-EE-FF form.
func (m MACAddress) String() string {
	return fmt.Sprintf("%02X-%02X-%02X-%02X-%02X-%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// HardwareAddr returns the address as a net.HardwareAddr.
func (m MACAddress) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

// NormalizeMAC uppercases s and replaces ':' separators with '-'.
// It returns ErrInvalidMAC if the result is not six dash-separated hex pairs.
func NormalizeMAC(s string) (string, error) {
	mac := strings.ReplaceAll(strings.ToUpper(s), ":", "-")
	if len(mac) != 17 || !macPattern.MatchString(mac) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}
	return mac, nil
}

// ParseMAC normalizes s and decodes it into a MACAddress.
func ParseMAC(s string) (MACAddress, error) {
	var m MACAddress

	mac, err := NormalizeMAC(s)
	if err != nil {
		return m, err
	}

	b, err := hex.DecodeString(strings.ReplaceAll(mac, "-", ""))
	if err != nil {
		return m, fmt.Errorf("%w: %q: %w", ErrInvalidMAC, s, err)
	}
	copy(m[:], b)

	return m, nil
}
