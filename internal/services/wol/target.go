package wol

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// DefaultPort is the UDP port used when none is given.
const DefaultPort = 9

// Resolver looks up host addresses. *net.Resolver implements it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ParsePort returns DefaultPort for an empty string, otherwise the port
// number in [1,65535].
func ParsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPort, nil
	}

	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %d, port must be between 1 and 65535", ErrInvalidPort, port)
	}

	return port, nil
}

// ParseCIDR parses an optional subnet prefix length. ok is false when s is
// empty, meaning the packet goes to the unicast address.
func ParseCIDR(s string) (cidr int, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}

	cidr, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q is not a number", ErrInvalidCIDR, s)
	}
	if cidr < 0 || cidr > 32 {
		return 0, false, fmt.Errorf("%w: %d, CIDR must be between 0 and 32", ErrInvalidCIDR, cidr)
	}

	return cidr, true, nil
}

// Netmask returns the IPv4 netmask for a prefix length in [0,32].
func Netmask(cidr int) uint32 {
	if cidr <= 0 {
		return 0
	}
	return ^uint32(0) << (32 - cidr)
}

// BroadcastAddress returns the highest address of the cidr-sized subnet
// containing addr.
func BroadcastAddress(addr netip.Addr, cidr int) netip.Addr {
	network := ipToUint32(addr) & Netmask(cidr)
	size := uint64(1) << (32 - cidr)
	return uint32ToIP(uint32(uint64(network) + size - 1))
}

// NetworkAddress returns the lowest address of the cidr-sized subnet
// containing addr.
func NetworkAddress(addr netip.Addr, cidr int) netip.Addr {
	return uint32ToIP(ipToUint32(addr) & Netmask(cidr))
}

func ipToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToIP(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// parseIPv4 reports whether host is a dotted-decimal IPv4 literal.
func parseIPv4(host string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// lookupIPv4 resolves host to its first IPv4 address.
func lookupIPv4(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	ips, err := r.LookupIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %q: %w", ErrResolutionFailed, host, err)
	}

	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			addr, _ := netip.AddrFromSlice(v4)
			return addr, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w %q: no IPv4 address found", ErrResolutionFailed, host)
}
