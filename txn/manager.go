// Package txn implements the transaction and transaction manager: grouped
// file mutations staged in a work area, committed by an atomic descriptor
// rename, applied by per-entry rename/delete, and recovered by fsck on
// startup.
package txn

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/danmowehhuk/sdstorage/internal/sdlog"
	"github.com/danmowehhuk/sdstorage/pathutil"
	"github.com/danmowehhuk/sdstorage/record"
	"github.com/danmowehhuk/sdstorage/sdfs"
)

// Manager owns the process-wide lock table and id counter (core spec §3,
// §5: these are process-wide mutable state, reset implicitly at process
// restart) and implements begin/commit/abort/finalize/fsck.
//
// Exactly one Manager should exist per root directory per process.
type Manager struct {
	fs        sdfs.FS
	paths     *pathutil.Helper
	errorHook func(error)
	logger    *sdlog.Logger

	mu    sync.Mutex
	locks map[string]bool
	// nextID and nextTemp are kept as separate counters rather than the
	// single monotonic sequence of core spec §3/§4.3; harmless since
	// descriptor names (.txn/.cmt) and staged temp names (.tmp) use
	// disjoint extensions, so the two counters can never collide.
	nextID   uint16
	nextTemp uint32
}

// NewManager constructs a Manager. errorHook may be nil (then error-hook
// invocations are silently skipped, matching a no-op callback); logger may
// be nil, in which case [sdlog.Discard] semantics apply.
func NewManager(fs sdfs.FS, paths *pathutil.Helper, errorHook func(error), logger *sdlog.Logger) *Manager {
	if logger == nil {
		logger = sdlog.Discard()
	}

	return &Manager{
		fs:        fs,
		paths:     paths,
		errorHook: errorHook,
		logger:    logger,
		locks:     make(map[string]bool),
	}
}

func (m *Manager) invokeErrorHook(err error) {
	m.logger.Errorf("%v", err)

	if m.errorHook != nil {
		m.errorHook(err)
	}
}

// Begin creates a fresh transaction over paths, spin-waiting on any that
// are currently owned by another live transaction, validating each as a
// new-or-existing target, allocating a unique staged temp path for each,
// and writing the transaction's descriptor (extension .txn) to the work
// directory. Any failure destroys the transaction, releasing any locks
// already acquired during this call.
func (m *Manager) Begin(paths ...string) (*Transaction, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("txn: %w: Begin requires at least one path", ErrInvalidName)
	}

	tx := &Transaction{
		mgr:    m,
		id:     m.allocateID(),
		staged: make(map[string]string, len(paths)),
	}

	var acquired []string

	fail := func(err error) (*Transaction, error) {
		for _, p := range acquired {
			m.releaseLock(p)
		}

		return nil, err
	}

	for _, p := range paths {
		m.acquireLock(p)
		acquired = append(acquired, p)

		if !m.fs.Exists(p) {
			base, err := pathutil.Base(p)
			if err != nil {
				return fail(fmt.Errorf("txn: %w: %v", ErrInvalidName, err))
			}

			if err := pathutil.ValidateShortName(base); err != nil {
				return fail(fmt.Errorf("txn: %w: %v", ErrInvalidName, err))
			}

			dir, err := pathutil.Dir(p)
			if err != nil {
				return fail(fmt.Errorf("txn: %w: %v", ErrInvalidName, err))
			}

			if !m.fs.IsDir(dir) {
				return fail(fmt.Errorf("txn: %w: parent dir %q does not exist", ErrMissingPrerequisite, dir))
			}
		}

		tempPath := m.allocTempPath()
		if m.fs.Exists(tempPath) {
			return fail(fmt.Errorf("txn: %w: staged temp path %q already exists", ErrStagingFailed, tempPath))
		}

		tx.order = append(tx.order, p)
		tx.staged[p] = tempPath
	}

	if err := tx.writeDescriptor(); err != nil {
		return fail(err)
	}

	return tx, nil
}

// Commit is the atomic flip + apply sequence (core spec §4.4.2):
//  1. rename the descriptor from .txn to .cmt — the commit point.
//  2. applyChanges: for each staged entry, apply the rename/delete.
//  3. on apply success, remove the descriptor and release locks.
//
// A failure of the rename (step 1) leaves the transaction non-durable;
// cleanup runs and the caller sees ErrCommitPointFailed. A failure during
// apply (step 2), after the rename succeeded, invokes the error hook,
// releases locks, but deliberately leaves the .cmt descriptor in place so
// the next Fsck can resume it; the caller sees ErrPostCommitApplyFailed.
func (m *Manager) Commit(t *Transaction) error {
	if t.closed {
		return fmt.Errorf("txn: transaction %d already finalized", t.id)
	}

	oldPath := t.DescriptorPath()
	t.committed = true
	newPath := t.DescriptorPath()

	if !m.fs.Rename(oldPath, newPath) {
		t.committed = false
		m.cleanup(t, true)

		return fmt.Errorf("txn: %w: transaction %d", ErrCommitPointFailed, t.id)
	}

	if err := m.applyChanges(t); err != nil {
		m.invokeErrorHook(err)
		t.releaseLocksOnce()

		return fmt.Errorf("txn: %w: transaction %d: %v", ErrPostCommitApplyFailed, t.id, err)
	}

	m.cleanup(t, true)

	return nil
}

// Abort discards every staged temp file that was actually written (a
// tombstoned entry has nothing staged to discard) and then cleans up the
// transaction. Remaining stale temps, rare and only on a remove failure,
// are tolerated; the next Fsck sweeps them.
func (m *Manager) Abort(t *Transaction) error {
	if t.closed {
		return nil
	}

	t.ForEachEntry(func(_, staged string) bool {
		if staged == record.Tombstone {
			return true
		}

		if m.fs.Exists(staged) {
			if !m.fs.Remove(staged) {
				m.logger.Errorf("txn: abort: could not remove staged temp %q, leaving for fsck", staged)
			}
		}

		return true
	})

	m.cleanup(t, false)

	return nil
}

// cleanup removes the descriptor (only when removeDescriptor is true —
// callers that hit a post-commit apply failure keep the descriptor in
// place for fsck) and releases locks exactly once per transaction
// lifetime.
func (m *Manager) cleanup(t *Transaction, removeDescriptor bool) {
	if removeDescriptor {
		m.fs.Remove(t.DescriptorPath())
	}

	t.releaseLocksOnce()
}

func (t *Transaction) releaseLocksOnce() {
	if t.closed {
		return
	}

	t.closed = true

	for _, p := range t.order {
		t.mgr.releaseLock(p)
	}
}

// Finalize implements implicit-vs-explicit transaction dispatch (core
// spec §4.4.4). For an implicit transaction, it commits on success or
// aborts on failure. For an explicit (caller-owned) transaction, it does
// not touch the transaction at all — it only propagates success/failure,
// since the caller is responsible for eventually committing or aborting
// it themselves.
func (m *Manager) Finalize(t *Transaction, implicit bool, success bool) error {
	if implicit {
		if success {
			return m.Commit(t)
		}

		return m.Abort(t)
	}

	if success {
		return nil
	}

	return ErrExplicitTransactionFailed
}

// applyChanges applies every staged entry in insertion order: a tombstone
// removes its target (a missing target is not an error); a missing temp
// file (never written) is a no-op; otherwise the existing target, if any,
// is removed and the temp file is renamed into place. The first failure
// stops the scan.
func (m *Manager) applyChanges(t *Transaction) error {
	var firstErr error

	t.ForEachEntry(func(target, staged string) bool {
		if staged == record.Tombstone {
			m.fs.Remove(target)

			return true
		}

		if !m.fs.Exists(staged) {
			// Skip: allocated but never written.
			return true
		}

		if m.fs.Exists(target) {
			if !m.fs.Remove(target) {
				firstErr = fmt.Errorf("removing existing target %q", target)

				return false
			}
		}

		if !m.fs.Rename(staged, target) {
			firstErr = fmt.Errorf("renaming %q to %q", staged, target)

			return false
		}

		return true
	})

	return firstErr
}

// Fsck scans the work directory on startup. Every ".cmt" descriptor is
// loaded and its changes applied, then the descriptor is removed. After
// all ".cmt" files are processed, every remaining file in the work
// directory is deleted (leftover in-flight transactions and staged temps
// of rolled-back commits). A failure applying a ".cmt" is hard and fatal
// (ErrFsckFailed); a failure deleting a leftover file during the final
// sweep is reported through the error hook but does not fail Fsck.
//
// Fsck must complete successfully before the manager accepts any new
// transaction.
func (m *Manager) Fsck() error {
	workDir := m.paths.WorkDir()

	names, err := m.listChildren(workDir)
	if err != nil {
		return nil // nothing to recover yet (work dir not created).
	}

	for _, name := range names {
		if !strings.HasSuffix(name, ".cmt") {
			continue
		}

		if err := m.recoverCommitted(workDir, name); err != nil {
			wrapped := fmt.Errorf("txn: %w: %v", ErrFsckFailed, err)
			m.invokeErrorHook(wrapped)

			return wrapped
		}
	}

	names, err = m.listChildren(workDir)
	if err != nil {
		return nil
	}

	for _, name := range names {
		path := workDir + "/" + name
		if !m.fs.Remove(path) {
			m.invokeErrorHook(fmt.Errorf("txn: fsck: could not remove stale work file %q", path))
		}
	}

	return nil
}

func (m *Manager) recoverCommitted(workDir, name string) error {
	path := workDir + "/" + name

	rc, err := m.fs.OpenRecordRead(path)
	if err != nil {
		return fmt.Errorf("opening descriptor %q: %w", path, err)
	}

	rec, loadErr := record.Load(rc)

	_ = rc.Close()

	if loadErr != nil {
		return fmt.Errorf("loading descriptor %q: %w", path, loadErr)
	}

	id, idErr := idFromDescriptorName(name)
	if idErr != nil {
		return fmt.Errorf("parsing descriptor name %q: %w", name, idErr)
	}

	recovered := &Transaction{
		mgr:       m,
		id:        id,
		committed: true,
		order:     rec.Keys(),
		staged:    make(map[string]string, rec.Len()),
	}

	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		recovered.staged[k] = v
	}

	if err := m.applyChanges(recovered); err != nil {
		return fmt.Errorf("applying descriptor %q: %w", path, err)
	}

	m.fs.Remove(path)

	return nil
}

func (m *Manager) listChildren(dir string) ([]string, error) {
	it, err := m.fs.OpenNextChild(dir)
	if err != nil {
		return nil, err
	}

	defer func() { _ = it.Close() }()

	var names []string

	for {
		name, ok, err := it.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		names = append(names, name)
	}

	return names, nil
}

func idFromDescriptorName(name string) (uint16, error) {
	base := strings.TrimSuffix(name, ".cmt")

	n, err := strconv.ParseUint(base, 10, 16)
	if err != nil {
		return 0, err
	}

	return uint16(n), nil
}

func (m *Manager) allocateID() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	return id
}

func (m *Manager) allocTempPath() string {
	m.mu.Lock()
	seq := m.nextTemp
	m.nextTemp++
	m.mu.Unlock()

	return fmt.Sprintf("%s/%d.tmp", m.paths.WorkDir(), seq)
}

// acquireLock busy-waits until path is not present in the lock table, then
// claims it. This is deliberately a spin-wait, not a condition variable:
// per core spec §5, contention is a rare, brief, same-process coordination
// hazard, not a resource to optimize scheduling around.
func (m *Manager) acquireLock(path string) {
	for {
		m.mu.Lock()

		if !m.locks[path] {
			m.locks[path] = true
			m.mu.Unlock()

			return
		}

		m.mu.Unlock()
		runtime.Gosched()
	}
}

func (m *Manager) releaseLock(path string) {
	m.mu.Lock()
	delete(m.locks, path)
	m.mu.Unlock()
}

// ResetForTests clears the lock table and id/temp counters, matching the
// core spec's "reset at process restart" lifecycle. Exposed for recovery
// tests that need to simulate a fresh process.
func (m *Manager) ResetForTests() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locks = make(map[string]bool)
	m.nextID = 0
	m.nextTemp = 0
}
