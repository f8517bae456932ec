package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind distinguishes the three file mutations a transaction log
// entry can undo.
type OperationKind int

const (
	OpCreate OperationKind = iota
	OpModify
	OpDelete
)

// Patch is a single byte-range replacement within a file: old is what
// occupied [Offset, Offset+len(New)) before the mutation, so reversing it
// means writing old back over that same range.
type Patch struct {
	Offset int
	Old    []byte
	New    []byte
}

// Operation is one journaled mutation. Create's Backup is unused; Delete's
// Backup holds the full prior file contents; Modify's Patches holds the
// byte-range diffs to reverse, in application order.
type Operation struct {
	Kind    OperationKind
	Path    string
	Backup  []byte
	Patches []Patch
}

// NewCreateOp records a file that was created and did not exist before,
// so rolling it back means removing it.
func NewCreateOp(path string) Operation { return Operation{Kind: OpCreate, Path: path} }

// NewModifyOp records a sequence of byte-range patches applied to an
// existing file.
func NewModifyOp(path string, patches []Patch) Operation {
	return Operation{Kind: OpModify, Path: path, Patches: patches}
}

// NewDeleteOp records a file's full contents immediately before it was
// deleted, so rolling it back means recreating it verbatim.
func NewDeleteOp(path string, priorContents []byte) Operation {
	return Operation{Kind: OpDelete, Path: path, Backup: priorContents}
}

// TransactionLog is the ordered record of operations applied since the
// current snapshot was taken.
type TransactionLog struct {
	ID         uuid.UUID
	Operations []Operation
	Timestamp  time.Time
	SnapshotID uuid.UUID
}

func newTransactionLog(snapshotID uuid.UUID) *TransactionLog {
	return &TransactionLog{
		ID:         uuid.New(),
		Timestamp:  time.Now(),
		SnapshotID: snapshotID,
	}
}
