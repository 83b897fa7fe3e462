//go:build !windows

package telemetry

import (
	"os/exec"
	"syscall"
)

// detachFromParent puts the child in its own session so it survives the
// parent exiting before the detached send completes.
func detachFromParent(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
