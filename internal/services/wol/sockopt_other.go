//go:build !unix && !windows

package wol

import (
	"errors"
	"syscall"
)

func enableBroadcast(_, _ string, _ syscall.RawConn) error {
	return errors.New("SO_BROADCAST is not supported on this platform")
}
