//go:build windows

package compile

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(pid int) error {
	return nil
}
