//go:build windows

package executor

import (
	"os/exec"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsSandbox enforces caps via a Job Object: process and job memory
// limits plus active-process-count and kill-on-job-close are set once at
// job creation, which the kernel then enforces without any polling.
// Grounded in execution_logic.rs's windows_executor module and
// get_execution_stats's Windows_JobObject_Enhanced figures.
type windowsSandbox struct{}

func newSandbox() sandbox { return windowsSandbox{} }

const (
	jobObjectExtendedLimitInformation = 9
	jobObjectLimitProcessMemory       = 0x00000100
	jobObjectLimitJobMemory           = 0x00000200
	jobObjectLimitActiveProcess       = 0x00000008
	jobObjectLimitKillOnJobClose      = 0x00002000
)

type ioCounters struct {
	ReadOperationCount  uint64
	WriteOperationCount uint64
	OtherOperationCount uint64
	ReadTransferCount   uint64
	WriteTransferCount  uint64
	OtherTransferCount  uint64
}

type basicLimitInformation struct {
	PerProcessUserTimeLimit int64
	PerJobUserTimeLimit     int64
	LimitFlags              uint32
	MinimumWorkingSetSize   uintptr
	MaximumWorkingSetSize   uintptr
	ActiveProcessLimit      uint32
	Affinity                uintptr
	PriorityClass           uint32
	SchedulingClass         uint32
}

type extendedLimitInformation struct {
	BasicLimitInformation basicLimitInformation
	IoInfo                ioCounters
	ProcessMemoryLimit    uintptr
	JobMemoryLimit        uintptr
	PeakProcessMemoryUsed uintptr
	PeakJobMemoryUsed     uintptr
}

func (windowsSandbox) prepare(cmd *exec.Cmd, limits Limits) error {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return err
	}

	info := extendedLimitInformation{
		BasicLimitInformation: basicLimitInformation{
			LimitFlags:         jobObjectLimitProcessMemory | jobObjectLimitJobMemory | jobObjectLimitActiveProcess | jobObjectLimitKillOnJobClose,
			ActiveProcessLimit: uint32(limits.MaxProcesses),
		},
		ProcessMemoryLimit: uintptr(limits.MaxMemoryMB) * 1024 * 1024,
		JobMemoryLimit:     uintptr(limits.MaxMemoryMB) * 1024 * 1024,
	}

	_, err = windows.SetInformationJobObject(
		job,
		jobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return err
	}

	cmd.Cancel = func() error {
		windows.CloseHandle(job)
		return cmd.Process.Kill()
	}
	pendingJobs[cmd] = job
	return nil
}

// pendingJobs hands the job handle created in prepare across to the
// start-then-assign step watch performs once cmd.Process exists;
// exec.Cmd has no hook to assign a job between CreateProcess and resuming
// the suspended thread otherwise.
var pendingJobs = map[*exec.Cmd]windows.Handle{}

func (windowsSandbox) watch(cmd *exec.Cmd, limits Limits, done <-chan struct{}) breachKind {
	job, ok := pendingJobs[cmd]
	if ok {
		if handle, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(cmd.Process.Pid)); err == nil {
			_ = windows.AssignProcessToJobObject(job, handle)
			windows.CloseHandle(handle)
		}
		defer func() {
			windows.CloseHandle(job)
			delete(pendingJobs, cmd)
		}()
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
				if ok {
					windows.TerminateJobObject(job, 1)
				} else {
					_ = cmd.Process.Kill()
				}
				return breachTimeout
			}
		}
	}
}
