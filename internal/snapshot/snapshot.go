// Package snapshot implements point-in-time capture and rollback of a
// directory tree: content-addressed snapshots with a SHA-256 checksum, a
// transaction journal of the operations applied since the last snapshot,
// and normal/emergency rollback paths. Grounded in
// original_source/persistence-kb-rs/src/snapshot.rs, re-expressed with
// explicit context.Context, a read-mostly RWMutex in place of the
// original's Arc<RwLock<...>>, and a fan-out channel broadcaster in place
// of tokio::sync::broadcast.
package snapshot

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/aegisline/corectl/internal/xerr"
)

// DefaultMaxSnapshots bounds how many snapshot directories are retained on
// disk before CleanupOldSnapshots starts evicting the oldest.
const DefaultMaxSnapshots = 5

// CriticalResourceBreach is the reason string that routes Rollback through
// the emergency path instead of the normal one.
const CriticalResourceBreach = "CRITICAL_RESOURCE_BREACH"

// KBSnapshot is a single point-in-time capture: its id, when it was taken,
// where its data lives on disk, and the checksum that integrity-checks it
// before a rollback is trusted.
type KBSnapshot struct {
	ID        uuid.UUID
	Timestamp time.Time
	DataPath  string
	Metadata  map[string]string
	Checksum  [32]byte
}

// Manager owns the current snapshot pointer and the transaction log
// recorded since it was taken, and performs create/rollback/cleanup.
type Manager struct {
	storagePath  string
	maxSnapshots int

	mu      sync.RWMutex
	current *KBSnapshot
	log     *TransactionLog

	watchdog *Watchdog
}

// NewManager creates storagePath if needed and returns a Manager with an
// empty transaction log and no current snapshot.
func NewManager(storagePath string, maxSnapshots int) (*Manager, error) {
	if maxSnapshots <= 0 {
		maxSnapshots = DefaultMaxSnapshots
	}
	logx.Infof("initializing snapshot manager at %s", storagePath)
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, xerr.Wrap(xerr.Internal, err, "create snapshot storage directory")
	}
	return &Manager{
		storagePath:  storagePath,
		maxSnapshots: maxSnapshots,
		log:          newTransactionLog(uuid.Nil),
		watchdog:     NewWatchdog(),
	}, nil
}

// Watchdog returns the broadcaster snapshot lifecycle events are posted to.
func (m *Manager) Watchdog() *Watchdog { return m.watchdog }

// Current returns the presently active snapshot, if any.
func (m *Manager) Current() (KBSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return KBSnapshot{}, false
	}
	return *m.current, true
}

// Record appends op to the current transaction log; callers (the executor,
// when it mutates files under a watched directory) invoke this before or
// immediately after performing a file mutation, so Rollback can undo it.
func (m *Manager) Record(op Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Operations = append(m.log.Operations, op)
}

// CreateSnapshot captures kbPath: copies its contents into a temp directory
// under storagePath, checksums the copy, then atomically renames the temp
// directory into place. The transaction log is reset to empty, since a
// fresh snapshot has nothing to roll back yet.
func (m *Manager) CreateSnapshot(ctx context.Context, kbPath string) (KBSnapshot, error) {
	id := uuid.New()
	now := time.Now()
	snapshotDir := filepath.Join(m.storagePath, id.String())

	m.watchdog.Notify(fmt.Sprintf("creating snapshot %s for %s", id, kbPath))
	logx.WithContext(ctx).Infof("creating snapshot %s for %s", id, kbPath)

	tempDir := filepath.Join(snapshotDir, "temp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return KBSnapshot{}, xerr.Wrap(xerr.Internal, err, "create snapshot temp directory")
	}

	if err := copyDirectoryContents(kbPath, tempDir); err != nil {
		return KBSnapshot{}, xerr.Wrap(xerr.Internal, err, "copy KB contents into snapshot")
	}

	checksum, err := calculateDirectoryChecksum(tempDir)
	if err != nil {
		return KBSnapshot{}, xerr.Wrap(xerr.Internal, err, "checksum snapshot contents")
	}

	finalDir := filepath.Join(snapshotDir, "data")
	if err := os.Rename(tempDir, finalDir); err != nil {
		return KBSnapshot{}, xerr.Wrap(xerr.Internal, err, "finalize snapshot directory")
	}

	snap := KBSnapshot{
		ID:        id,
		Timestamp: now,
		DataPath:  finalDir,
		Metadata:  map[string]string{},
		Checksum:  checksum,
	}

	m.mu.Lock()
	m.current = &snap
	m.log = newTransactionLog(id)
	m.mu.Unlock()

	return snap, nil
}

// cloneStateForRollback takes a consistent snapshot of the current pointer
// and the operations recorded against it under a single short-held lock,
// so the I/O-heavy rollback that follows never blocks concurrent Record
// calls (or a concurrent CreateSnapshot) for its whole duration.
func (m *Manager) cloneStateForRollback() (KBSnapshot, []Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return KBSnapshot{}, nil, xerr.New(xerr.FailedPrecondition, "no snapshot available for rollback")
	}
	ops := make([]Operation, len(m.log.Operations))
	copy(ops, m.log.Operations)
	return *m.current, ops, nil
}

func copyDirectoryContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return err
			}
			if err := copyDirectoryContents(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// calculateDirectoryChecksum hashes every file under dir, recursively, in
// lexical path order. The original hashes fs::read_dir's entries in
// whatever order the OS returns them, which is not guaranteed stable
// across runs; sorting here makes the checksum reproducible for the same
// tree contents regardless of directory-entry ordering.
func calculateDirectoryChecksum(dir string) ([32]byte, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		contents, err := os.ReadFile(p)
		if err != nil {
			return [32]byte{}, err
		}
		h.Write(contents)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// CleanupOldSnapshots evicts the oldest snapshot directories once the
// retained count exceeds maxSnapshots, oldest-first by directory modtime.
func (m *Manager) CleanupOldSnapshots() error {
	m.watchdog.Notify("starting snapshot cleanup")
	entries, err := os.ReadDir(m.storagePath)
	if err != nil {
		return xerr.Wrap(xerr.Internal, err, "list snapshot directory")
	}
	if len(entries) <= m.maxSnapshots {
		return nil
	}

	type dirInfo struct {
		path    string
		modTime time.Time
	}
	infos := make([]dirInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return xerr.Wrap(xerr.Internal, err, "stat snapshot directory entry")
		}
		infos = append(infos, dirInfo{path: filepath.Join(m.storagePath, e.Name()), modTime: info.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].modTime.Before(infos[j].modTime) })

	evict := len(infos) - m.maxSnapshots
	for _, d := range infos[:evict] {
		if err := os.RemoveAll(d.path); err != nil {
			return xerr.Wrap(xerr.Internal, err, "remove old snapshot")
		}
	}
	return nil
}
