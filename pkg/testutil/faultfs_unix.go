//go:build !windows

package testutil

import "golang.org/x/sys/unix"

var errCrossDevice error = unix.EXDEV
