//go:build linux

package executor

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// linuxSandbox enforces caps via prlimit(2) applied to the child
// immediately after Start (the primary mechanism, per SPEC_FULL's stated
// preference for OS-enforced caps over polling) plus a polling monitor
// as the belt-and-suspenders check for the caps rlimits cannot express:
// wall clock and live process count.
type linuxSandbox struct{}

func newSandbox() sandbox { return linuxSandbox{} }

func (linuxSandbox) prepare(cmd *exec.Cmd, limits Limits) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pdeathsig: syscall.SIGKILL}
	return nil
}

func (linuxSandbox) watch(cmd *exec.Cmd, limits Limits, done <-chan struct{}) breachKind {
	pid := cmd.Process.Pid

	memBytes := uint64(limits.MaxMemoryMB) * 1024 * 1024
	rlim := unix.Rlimit{Cur: memBytes, Max: memBytes}
	_ = unix.Prlimit(pid, unix.RLIMIT_AS, &rlim, nil)

	if limits.MaxCPUPercent > 0 && limits.MaxCPUPercent < 100 {
		cpuSeconds := uint64(limits.Wall.Seconds())
		if cpuSeconds == 0 {
			cpuSeconds = 1
		}
		cpuLim := unix.Rlimit{Cur: cpuSeconds, Max: cpuSeconds}
		_ = unix.Prlimit(pid, unix.RLIMIT_CPU, &cpuLim, nil)
	}

	ticker := time.NewTicker(limits.MonitorInterval)
	defer ticker.Stop()
	deadline := time.Now().Add(limits.Wall)

	for {
		select {
		case <-done:
			return breachNone
		case now := <-ticker.C:
			if now.After(deadline) {
				killGroup(pid)
				return breachTimeout
			}
			if n := countDescendants(pid); n > limits.MaxProcesses {
				killGroup(pid)
				return breachProcesses
			}
		}
	}
}

func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// countDescendants counts pid and every process transitively parented by
// it, by scanning /proc/*/stat for the ppid field. A read failure for any
// individual process is skipped rather than failing the whole count; an
// unreadable /proc returns 1 so a monitoring hiccup cannot itself trip
// the process-count cap.
func countDescendants(pid int) int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 1
	}

	parentOf := make(map[int]int)
	for _, e := range entries {
		childPID, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile("/proc/" + e.Name() + "/stat")
		if err != nil {
			continue
		}
		// Fields after the ")" that closes comm: state ppid ...
		idx := strings.LastIndexByte(string(data), ')')
		if idx < 0 || idx+2 >= len(data) {
			continue
		}
		fields := strings.Fields(string(data[idx+2:]))
		if len(fields) < 2 {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		parentOf[childPID] = ppid
	}

	count := 0
	for p := range parentOf {
		cur := p
		for depth := 0; cur != 0 && depth < len(parentOf)+1; depth++ {
			if cur == pid {
				count++
				break
			}
			cur = parentOf[cur]
		}
	}
	return count + 1
}
