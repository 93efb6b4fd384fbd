package txn

import "errors"

// Sentinel errors implementing the core spec's error-kind taxonomy (§7).
// LockContention is deliberately absent: per spec, contention is not an
// outcome, it blocks the caller until the lock is free.
var (
	// ErrInvalidName covers a bad root, an invalid FAT16 short name, or an
	// overlong path.
	ErrInvalidName = errors.New("txn: invalid name")

	// ErrMissingPrerequisite covers an absent parent directory, a parent
	// that is not a directory, or a target missing for an operation that
	// requires it.
	ErrMissingPrerequisite = errors.New("txn: missing prerequisite")

	// ErrStagingFailed covers a staged temp path that already exists at
	// beginTxn time, or a write stream that could not be opened.
	ErrStagingFailed = errors.New("txn: staging failed")

	// ErrCommitPointFailed means the .txn -> .cmt rename failed; the
	// transaction is discarded safely and the caller sees failure.
	ErrCommitPointFailed = errors.New("txn: commit point rename failed")

	// ErrPostCommitApplyFailed means a failure occurred applying changes
	// after the commit point; the error hook has already been invoked by
	// the time this is returned. Recovery is via Fsck.
	ErrPostCommitApplyFailed = errors.New("txn: apply failed after commit point")

	// ErrNotInTransaction is returned by Transaction.GetTempPath when the
	// path is not part of the transaction.
	ErrNotInTransaction = errors.New("txn: path not part of transaction")

	// ErrMarkedForDelete is returned by Transaction.GetTempPath when the
	// path's staged value is the tombstone.
	ErrMarkedForDelete = errors.New("txn: path is marked for deletion")

	// ErrExplicitTransactionFailed is returned by Manager.Finalize for an
	// explicit (caller-supplied) transaction whose operation failed; the
	// manager does not commit or abort on the caller's behalf in that
	// case, it only propagates failure.
	ErrExplicitTransactionFailed = errors.New("txn: explicit transaction operation failed")

	// ErrFsckFailed signals a hard, data-inconsistent error during
	// recovery; per spec this is expected to halt the caller.
	ErrFsckFailed = errors.New("txn: fsck failed")
)
