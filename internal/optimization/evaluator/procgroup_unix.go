//go:build unix

package evaluator

import (
	"os/exec"
	"syscall"
)

// isolate starts cmd in its own process group and makes cancellation kill
// the whole group, so helpers the objective spawned die with it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
