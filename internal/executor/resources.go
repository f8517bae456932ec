package executor

import (
	"os/exec"
	"time"

	"github.com/aegisline/corectl/internal/xerr"
)

// Limits bounds a single invocation. Defaults mirror
// execution_logic.rs::get_execution_stats's Windows_JobObject_Enhanced
// figures.
type Limits struct {
	Wall            time.Duration
	MaxMemoryMB     int64
	MaxCPUPercent   int
	MaxProcesses    int
	MonitorInterval time.Duration
}

// DefaultLimits is the out-of-the-box cap set: 10s wall clock, 512MiB,
// 50% CPU, 5 processes, sampled every 100ms.
func DefaultLimits() Limits {
	return Limits{
		Wall:            10 * time.Second,
		MaxMemoryMB:     512,
		MaxCPUPercent:   50,
		MaxProcesses:    5,
		MonitorInterval: 100 * time.Millisecond,
	}
}

// breachKind distinguishes why a capped invocation was terminated, so the
// caller-visible error can name the specific cap.
type breachKind string

const (
	breachNone      breachKind = ""
	breachTimeout   breachKind = "timeout"
	breachMemory    breachKind = "memory"
	breachCPU       breachKind = "cpu"
	breachProcesses breachKind = "process_count"
)

func (b breachKind) err() error {
	switch b {
	case breachTimeout:
		return xerr.New(xerr.DeadlineExceeded, "invocation exceeded its wall-clock cap").WithDetail(string(b))
	case breachNone:
		return nil
	default:
		return xerr.New(xerr.ResourceExhausted, "invocation exceeded a resource cap").WithDetail(string(b))
	}
}

// sandbox is the platform-specific half of process supervision: prepare
// configures a *exec.Cmd before Start, and watch supervises the running
// process, killing it and reporting the breach when a cap is exceeded.
// Implemented per-platform in resources_linux.go, resources_darwin.go and
// resources_windows.go, which differ in which caps the OS enforces and
// which the monitor polls for; on any other platform resources_other.go's
// prepare returns a FailedPrecondition error rather than silently skip
// enforcement.
type sandbox interface {
	// prepare configures cmd.SysProcAttr (and equivalents) before Start.
	prepare(cmd *exec.Cmd, limits Limits) error
	// watch runs for the process's lifetime, returning the breach kind
	// that fired (or breachNone if the process exited on its own first).
	// It must return promptly once done is closed.
	watch(cmd *exec.Cmd, limits Limits, done <-chan struct{}) breachKind
}
