//go:build windows

package telemetry

import "os/exec"

// detachFromParent is a no-op on Windows; exec.Cmd.Start already returns
// without waiting, which is sufficient for our best-effort purposes there.
func detachFromParent(_ *exec.Cmd) {}
