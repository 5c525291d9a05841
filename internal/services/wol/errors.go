package wol

import "errors"

// Error kinds returned by the wake pipeline. Match them with errors.Is.
var (
	ErrInvalidMAC           = errors.New("invalid MAC address")
	ErrInvalidCIDR          = errors.New("invalid subnet size")
	ErrInvalidPort          = errors.New("invalid port")
	ErrResolutionFailed     = errors.New("cannot resolve hostname")
	ErrTransportUnavailable = errors.New("UDP transport is not available")
	ErrSendFailed           = errors.New("cannot send magic packet")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidMAC, "InvalidMac"},
	{ErrInvalidCIDR, "InvalidCidr"},
	{ErrInvalidPort, "InvalidPort"},
	{ErrResolutionFailed, "ResolutionFailed"},
	{ErrTransportUnavailable, "TransportUnavailable"},
	{ErrSendFailed, "SendFailed"},
}

// Kind returns the name of the error kind wrapped by err, or "" if err is
// not one of the wake pipeline errors.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// IsInputError reports whether err was caused by invalid caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidMAC) || errors.Is(err, ErrInvalidCIDR) || errors.Is(err, ErrInvalidPort)
}
