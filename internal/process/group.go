// Package process manages external renderer processes and their children.
package process

import "os/exec"

// Grouped prepares cmd so that context cancellation kills the whole process
// tree instead of only the direct child. Call before cmd.Start.
func Grouped(cmd *exec.Cmd) *exec.Cmd {
	setGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	return cmd
}
