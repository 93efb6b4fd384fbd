package txn

import (
	"fmt"

	"github.com/danmowehhuk/sdstorage/record"
)

// Transaction is an ordered mapping of canonical target path to staged
// value (a temp path, or the tombstone sentinel), plus the transaction's
// own descriptor filename and committed flag.
//
// A Transaction is owned by exactly one caller at a time; it is not safe
// for concurrent use by multiple goroutines (the core spec's concurrency
// model is single-threaded cooperative per transaction).
type Transaction struct {
	mgr       *Manager
	id        uint16
	committed bool
	closed    bool

	order  []string
	staged map[string]string
}

// ID returns the transaction's process-local 16-bit identifier.
func (t *Transaction) ID() uint16 { return t.id }

// DescriptorPath returns <workDir>/<id>.txn before commit, or
// <workDir>/<id>.cmt after Manager.Commit has flipped the extension.
func (t *Transaction) DescriptorPath() string {
	ext := "txn"
	if t.committed {
		ext = "cmt"
	}

	return fmt.Sprintf("%s/%d.%s", t.mgr.paths.WorkDir(), t.id, ext)
}

// GetTempPath returns the staged temp path for path. It returns
// ErrNotInTransaction if path is not part of this transaction, and
// ErrMarkedForDelete if path's staged value is the tombstone.
func (t *Transaction) GetTempPath(path string) (string, error) {
	v, ok := t.staged[path]
	if !ok {
		return "", ErrNotInTransaction
	}

	if v == record.Tombstone {
		return "", ErrMarkedForDelete
	}

	return v, nil
}

// SetStagedValue overwrites path's staged value — used to tombstone a
// target (record.Tombstone) or to replace it — and durably rewrites the
// transaction's on-disk descriptor so a crash before commit still recovers
// the updated intent.
func (t *Transaction) SetStagedValue(path, value string) error {
	if _, ok := t.staged[path]; !ok {
		return fmt.Errorf("txn: %w: %q", ErrNotInTransaction, path)
	}

	t.staged[path] = value

	return t.writeDescriptor()
}

// ForEachEntry visits staged entries in insertion order. Returning false
// from visit stops the iteration early.
func (t *Transaction) ForEachEntry(visit func(target, staged string) bool) {
	for _, target := range t.order {
		if !visit(target, t.staged[target]) {
			return
		}
	}
}

func (t *Transaction) writeDescriptor() error {
	rec := record.New()
	for _, target := range t.order {
		rec.Set(target, t.staged[target])
	}

	ws, err := t.mgr.fs.OpenDescriptorWrite(t.DescriptorPath())
	if err != nil {
		return fmt.Errorf("txn: %w: opening descriptor write stream: %v", ErrStagingFailed, err)
	}

	if err := rec.Save(ws); err != nil {
		_ = ws.Abort()

		return fmt.Errorf("txn: %w: writing descriptor: %v", ErrStagingFailed, err)
	}

	if err := ws.Commit(); err != nil {
		return fmt.Errorf("txn: %w: committing descriptor: %v", ErrStagingFailed, err)
	}

	return nil
}
