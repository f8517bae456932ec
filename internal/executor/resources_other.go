//go:build !linux && !darwin && !windows

package executor

import (
	"os/exec"

	"github.com/aegisline/corectl/internal/xerr"
)

// unsupportedSandbox is the platforms-that-cannot-enforce-a-cap path: per
// SPEC_FULL's sandboxing contract, a platform with no enforcement
// mechanism must refuse to start rather than silently relax the caps.
type unsupportedSandbox struct{}

func newSandbox() sandbox { return unsupportedSandbox{} }

func (unsupportedSandbox) prepare(cmd *exec.Cmd, limits Limits) error {
	return xerr.New(xerr.FailedPrecondition, "resource caps are not implemented on this platform").WithDetail("unsupported_platform")
}

func (unsupportedSandbox) watch(cmd *exec.Cmd, limits Limits, done <-chan struct{}) breachKind {
	return breachNone
}
