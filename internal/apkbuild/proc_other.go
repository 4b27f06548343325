//go:build !unix

package apkbuild

import "os/exec"

// isolate is a no-op where process groups are not available; cancellation
// kills the shell only.
func isolate(cmd *exec.Cmd) {}

func killGroup(cmd *exec.Cmd) error {
	return nil
}
