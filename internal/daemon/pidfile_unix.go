//go:build unix

package daemon

import "golang.org/x/sys/unix"

// Signal 0 probes for the process without delivering anything.
func processExists(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
