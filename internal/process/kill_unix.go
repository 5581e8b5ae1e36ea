//go:build !windows

package process

import "syscall"

// killTree sends SIGKILL to the process group led by pid. Chrome is
// launched as a group leader so its renderers and GPU helper go with it.
func killTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
