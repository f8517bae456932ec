//go:build darwin

package executor

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// darwinSandbox has no prlimit(2) equivalent for a process it did not
// fork itself, so caps here are enforced only by the polling monitor,
// which checks the wall-clock deadline and memory; process count and CPU
// percent are not checked on this platform. This is the weaker of the two
// POSIX paths SPEC_FULL anticipates and is documented as such rather than
// silently presented as equivalent to the Linux path.
type darwinSandbox struct{}

func newSandbox() sandbox { return darwinSandbox{} }

func (darwinSandbox) prepare(cmd *exec.Cmd, limits Limits) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return nil
}

func (darwinSandbox) watch(cmd *exec.Cmd, limits Limits, done <-chan struct{}) breachKind {
	ticker := time.NewTicker(limits.MonitorInterval)
	defer ticker.Stop()
	deadline := time.Now().Add(limits.Wall)
	pid := cmd.Process.Pid

	for {
		select {
		case <-done:
			return breachNone
		case now := <-ticker.C:
			if now.After(deadline) {
				killGroup(pid)
				return breachTimeout
			}
			var usage unix.Rusage
			if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &usage); err == nil {
				// Darwin reports Maxrss in bytes, unlike Linux's KB.
				residentMB := usage.Maxrss / (1024 * 1024)
				if residentMB > limits.MaxMemoryMB {
					killGroup(pid)
					return breachMemory
				}
			}
		}
	}
}

func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
