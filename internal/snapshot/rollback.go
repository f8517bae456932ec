package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/aegisline/corectl/internal/xerr"
)

// Rollback restores the current snapshot by reversing the transaction log
// in order. reason is an operator-supplied string; when it equals
// CriticalResourceBreach, rollback runs through the emergency path, which
// applies compensating operations without the normal path's willingness to
// keep going after a non-fatal step (a resource-breach rollback is
// expected to race a process that is actively making things worse, so it
// fails fast instead).
func (m *Manager) Rollback(ctx context.Context, reason string) error {
	displayReason := reason
	if displayReason == "" {
		displayReason = "not specified"
	}
	logx.WithContext(ctx).Infof("initiating rollback, reason: %s", displayReason)

	snap, ops, err := m.cloneStateForRollback()
	if err != nil {
		return err
	}

	m.watchdog.Notify(fmt.Sprintf("initiating rollback to snapshot %s - reason: %s", snap.ID, displayReason))

	if reason == CriticalResourceBreach {
		logx.WithContext(ctx).Errorf("CRITICAL_RESOURCE_BREACH detected, performing emergency rollback")
		m.watchdog.Notify(fmt.Sprintf("EMERGENCY_ROLLBACK: restoring snapshot %s", snap.ID))
		if err := m.emergencyRollback(ctx, snap, ops); err != nil {
			return err
		}
		m.watchdog.Notify(fmt.Sprintf("EMERGENCY_ROLLBACK: snapshot %s restored", snap.ID))
	} else if err := m.normalRollback(ctx, snap, ops); err != nil {
		return err
	}

	logx.WithContext(ctx).Infof("rollback completed successfully")
	return nil
}

func (m *Manager) verifyIntegrity(snap KBSnapshot) error {
	got, err := calculateDirectoryChecksum(snap.DataPath)
	if err != nil {
		return xerr.Wrap(xerr.Internal, err, "checksum snapshot for rollback verification")
	}
	if got != snap.Checksum {
		return xerr.New(xerr.FailedPrecondition, "snapshot checksum mismatch").WithDetail(snap.ID.String())
	}
	return nil
}

// normalRollback verifies integrity once, then reverses every operation in
// the log, logging a failed step and continuing with the rest; the first
// failure is returned once the loop ends (a partially reversed state is
// reported rather than hidden).
func (m *Manager) normalRollback(ctx context.Context, snap KBSnapshot, ops []Operation) error {
	logx.WithContext(ctx).Infof("performing normal rollback to snapshot %s", snap.ID)
	if err := m.verifyIntegrity(snap); err != nil {
		return err
	}
	var firstErr error
	for i := len(ops) - 1; i >= 0; i-- {
		if err := reverseOperation(ops[i]); err != nil {
			logx.WithContext(ctx).Errorf("rollback of %s failed, continuing: %v", ops[i].Path, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return xerr.Wrap(xerr.Internal, firstErr, "reverse operation during rollback")
	}
	logx.WithContext(ctx).Infof("normal rollback completed successfully")
	return nil
}

// emergencyRollback mirrors normalRollback's operation-reversal loop; the
// two are kept as distinct methods (rather than one parameterized by a
// "strict" flag) because the emergency path additionally fails the whole
// rollback immediately on any single reversal error rather than logging
// it and going on with the remaining operations - matching the urgency of a resource-breach
// trigger where a half-reversed tree must not be mistaken for a clean one.
func (m *Manager) emergencyRollback(ctx context.Context, snap KBSnapshot, ops []Operation) error {
	logx.WithContext(ctx).Errorf("emergency rollback in progress, restoring snapshot %s", snap.ID)
	if err := m.verifyIntegrity(snap); err != nil {
		return err
	}
	for i := len(ops) - 1; i >= 0; i-- {
		if err := reverseOperation(ops[i]); err != nil {
			logx.WithContext(ctx).Errorf("emergency rollback failed reversing %s: %v", ops[i].Path, err)
			return xerr.Wrap(xerr.Internal, err, "reverse operation during emergency rollback")
		}
	}
	logx.WithContext(ctx).Errorf("emergency rollback completed successfully")
	return nil
}

func reverseOperation(op Operation) error {
	switch op.Kind {
	case OpCreate:
		if err := os.Remove(op.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	case OpModify:
		return reverseModify(op)
	case OpDelete:
		return os.WriteFile(op.Path, op.Backup, 0o644)
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}

// reverseModify replays op.Patches in reverse order, each time splicing
// Old back over the byte range that New currently occupies.
func reverseModify(op Operation) error {
	contents, err := os.ReadFile(op.Path)
	if err != nil {
		return err
	}
	for i := len(op.Patches) - 1; i >= 0; i-- {
		p := op.Patches[i]
		end := p.Offset + len(p.New)
		if p.Offset < 0 || end > len(contents) {
			return fmt.Errorf("patch out of range for %s", op.Path)
		}
		next := make([]byte, 0, len(contents)-len(p.New)+len(p.Old))
		next = append(next, contents[:p.Offset]...)
		next = append(next, p.Old...)
		next = append(next, contents[end:]...)
		contents = next
	}
	return os.WriteFile(op.Path, contents, 0o644)
}
