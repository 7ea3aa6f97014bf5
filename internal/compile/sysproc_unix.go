//go:build unix

package compile

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the compiler in its own process group so a
// forced timeout can signal the whole group, children included.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup best-effort terminates the process group rooted at pid.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
