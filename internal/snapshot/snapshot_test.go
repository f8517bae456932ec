package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateSnapshotAndNormalRollback(t *testing.T) {
	kbDir := t.TempDir()
	storeDir := t.TempDir()

	testFile := filepath.Join(kbDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("original content"), 0o644))

	mgr, err := NewManager(storeDir, 5)
	require.NoError(t, err)

	snap, err := mgr.CreateSnapshot(context.Background(), kbDir)
	require.NoError(t, err)
	require.DirExists(t, snap.DataPath)

	original, err := os.ReadFile(testFile)
	require.NoError(t, err)
	mgr.Record(NewModifyOp(testFile, []Patch{{Offset: 0, Old: original, New: []byte("modified content!")}}))
	require.NoError(t, os.WriteFile(testFile, []byte("modified content!"), 0o644))

	require.NoError(t, mgr.Rollback(context.Background(), ""))

	got, err := os.ReadFile(testFile)
	require.NoError(t, err)
	require.Equal(t, "original content", string(got))
}

func TestEmergencyRollbackRestoresMultipleFiles(t *testing.T) {
	kbDir := t.TempDir()
	storeDir := t.TempDir()

	f1 := filepath.Join(kbDir, "critical_data.txt")
	f2 := filepath.Join(kbDir, "config.txt")
	require.NoError(t, os.WriteFile(f1, []byte("important data"), 0o644))
	require.NoError(t, os.WriteFile(f2, []byte("configuration"), 0o644))

	mgr, err := NewManager(storeDir, 5)
	require.NoError(t, err)

	_, err = mgr.CreateSnapshot(context.Background(), kbDir)
	require.NoError(t, err)

	mgr.Record(NewModifyOp(f1, []Patch{{Offset: 0, Old: []byte("important data"), New: []byte("corrupted data!")}}))
	mgr.Record(NewModifyOp(f2, []Patch{{Offset: 0, Old: []byte("configuration"), New: []byte("invalid config!")}}))
	require.NoError(t, os.WriteFile(f1, []byte("corrupted data!"), 0o644))
	require.NoError(t, os.WriteFile(f2, []byte("invalid config!"), 0o644))

	require.NoError(t, mgr.Rollback(context.Background(), CriticalResourceBreach))

	got1, err := os.ReadFile(f1)
	require.NoError(t, err)
	got2, err := os.ReadFile(f2)
	require.NoError(t, err)
	require.Equal(t, "important data", string(got1))
	require.Equal(t, "configuration", string(got2))
}

func TestRollbackWithoutSnapshotFails(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), 5)
	require.NoError(t, err)
	err = mgr.Rollback(context.Background(), "")
	require.Error(t, err)
}

func TestWatchdogReceivesCreateAndRollbackNotifications(t *testing.T) {
	kbDir := t.TempDir()
	storeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "test.txt"), []byte("data"), 0o644))

	mgr, err := NewManager(storeDir, 5)
	require.NoError(t, err)
	events := mgr.Watchdog().Subscribe()

	_, err = mgr.CreateSnapshot(context.Background(), kbDir)
	require.NoError(t, err)

	select {
	case msg := <-events:
		require.Contains(t, msg, "creating snapshot")
	default:
		t.Fatal("expected a creation notification")
	}

	require.NoError(t, mgr.Rollback(context.Background(), CriticalResourceBreach))

	var sawEmergency bool
	for i := 0; i < 4; i++ {
		select {
		case msg := <-events:
			if strings.Contains(msg, "EMERGENCY_ROLLBACK") {
				sawEmergency = true
			}
		default:
		}
	}
	require.True(t, sawEmergency, "expected an EMERGENCY_ROLLBACK notification")
}

func TestCleanupOldSnapshotsEvictsOldest(t *testing.T) {
	kbDir := t.TempDir()
	storeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "f.txt"), []byte("x"), 0o644))

	mgr, err := NewManager(storeDir, 2)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := mgr.CreateSnapshot(context.Background(), kbDir)
		require.NoError(t, err)
	}

	require.NoError(t, mgr.CleanupOldSnapshots())

	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	require.LessOrEqual(t, len(entries), 2)
}

func TestChecksumIsDeterministicAcrossDirectoryReorderings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("bbb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aaa"), 0o644))

	sum1, err := calculateDirectoryChecksum(dir)
	require.NoError(t, err)
	sum2, err := calculateDirectoryChecksum(dir)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)
}
