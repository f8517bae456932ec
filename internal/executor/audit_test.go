package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditLogRecentReturnsNewestFirst(t *testing.T) {
	log := NewAuditLog(10)
	log.Record(Event{Kind: EventExecuted, Command: "first"})
	log.Record(Event{Kind: EventExecuted, Command: "second"})

	recent := log.Recent(2)
	require.Len(t, recent, 2)
	require.Equal(t, "second", recent[0].Command)
	require.Equal(t, "first", recent[1].Command)
}

func TestAuditLogRingBufferEvictsOldest(t *testing.T) {
	log := NewAuditLog(2)
	log.Record(Event{Command: "a"})
	log.Record(Event{Command: "b"})
	log.Record(Event{Command: "c"})

	recent := log.Recent(2)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].Command)
	require.Equal(t, "b", recent[1].Command)
}

func TestAuditLogCriticalCount(t *testing.T) {
	log := NewAuditLog(10)
	log.Record(Event{Severity: ThreatInfo})
	log.Record(Event{Severity: ThreatCritical})
	log.Record(Event{Severity: ThreatCritical})
	require.Equal(t, 2, log.CriticalCount())
}
