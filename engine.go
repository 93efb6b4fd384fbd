// Package sdstorage is the Facade: a crash-safe key/record store over a
// FAT16-style single-root filesystem, with a sorted flat-file string index
// alongside it for prefix lookup and autocomplete.
package sdstorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmowehhuk/sdstorage/internal/sdlog"
	"github.com/danmowehhuk/sdstorage/pathutil"
	"github.com/danmowehhuk/sdstorage/record"
	"github.com/danmowehhuk/sdstorage/sdfs"
	"github.com/danmowehhuk/sdstorage/sdindex"
	"github.com/danmowehhuk/sdstorage/txn"
)

// Engine is the opened, recovered storage engine. Construct one with Open.
type Engine struct {
	fs        sdfs.FS
	paths     *pathutil.Helper
	txns      *txn.Manager
	idx       *sdindex.Manager
	logger    *sdlog.Logger
	errorHook func(error)

	mu          sync.Mutex
	lastVersion map[string]int
	closed      bool
}

// Open validates cfg, constructs the engine's storage adapter, transaction
// manager, and index manager, runs fsck to complete or discard any
// transaction left over from a previous, uncleanly-terminated process, and
// returns a ready-to-use Engine. Open must succeed — and fsck must
// complete — before any new transaction is accepted.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()

	fs, err := cfg.buildFS()
	if err != nil {
		return nil, fmt.Errorf("sdstorage: building storage adapter: %w", err)
	}

	paths, err := cfg.buildPaths()
	if err != nil {
		return nil, fmt.Errorf("sdstorage: building path helper: %w", err)
	}

	if !fs.IsDir(paths.Root()) {
		if !fs.Mkdir(paths.Root()) {
			return nil, fmt.Errorf("sdstorage: creating root %q", paths.Root())
		}
	}

	if !fs.IsDir(paths.WorkDir()) {
		if !fs.Mkdir(paths.WorkDir()) {
			return nil, fmt.Errorf("sdstorage: creating work dir %q", paths.WorkDir())
		}
	}

	if !fs.IsDir(paths.IdxDir()) {
		if !fs.Mkdir(paths.IdxDir()) {
			return nil, fmt.Errorf("sdstorage: creating index dir %q", paths.IdxDir())
		}
	}

	logger := sdlog.New()

	txns := txn.NewManager(fs, paths, cfg.ErrorHook, logger)

	if err := txns.Fsck(); err != nil {
		return nil, fmt.Errorf("sdstorage: fsck: %w", err)
	}

	logger.Infof("opened root %q, fsck complete", paths.Root())

	return &Engine{
		fs:          fs,
		paths:       paths,
		txns:        txns,
		idx:         sdindex.NewManager(fs, paths, txns),
		logger:      logger,
		errorHook:   cfg.ErrorHook,
		lastVersion: make(map[string]int),
	}, nil
}

// Close releases any resources held by the engine's storage adapter (such
// as a whole-engine advisory lock). Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if closer, ok := e.fs.(interface{ Close() error }); ok {
		return closer.Close()
	}

	return nil
}

func (e *Engine) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return ErrClosed
	}

	return nil
}

// Begin opens an explicit, caller-owned transaction over paths. The caller
// is responsible for eventually calling Commit or Abort.
func (e *Engine) Begin(ctx context.Context, paths ...string) (*txn.Transaction, error) {
	if err := e.checkOpen(ctx); err != nil {
		return nil, err
	}

	canon := make([]string, len(paths))

	for i, p := range paths {
		c, err := e.paths.Canonicalize(p)
		if err != nil {
			return nil, err
		}

		canon[i] = c
	}

	return e.txns.Begin(canon...)
}

// Commit commits an explicit transaction previously returned by Begin.
func (e *Engine) Commit(tx *txn.Transaction) error {
	return e.txns.Commit(tx)
}

// Abort discards an explicit transaction previously returned by Begin.
func (e *Engine) Abort(tx *txn.Transaction) error {
	return e.txns.Abort(tx)
}

// Save writes rec to path. If tx is nil, an implicit single-file
// transaction is opened, committed on success, and aborted on failure.
// Save refuses to overwrite a record whose last-loaded version from this
// path was higher than rec.Version.
func (e *Engine) Save(ctx context.Context, path string, rec *record.Record, tx *txn.Transaction) error {
	if err := e.checkOpen(ctx); err != nil {
		return err
	}

	target, err := e.paths.Canonicalize(path)
	if err != nil {
		return err
	}

	if err := e.checkVersion(target, rec.Version); err != nil {
		return err
	}

	implicit := tx == nil

	t := tx
	if implicit {
		t, err = e.txns.Begin(target)
		if err != nil {
			return err
		}
	}

	saveErr := e.writeRecord(t, target, rec)

	if err := e.txns.Finalize(t, implicit, saveErr == nil); err != nil {
		if saveErr != nil {
			return saveErr
		}

		return err
	}

	return saveErr
}

func (e *Engine) checkVersion(target string, version int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastVersion[target]; ok && version < last {
		return fmt.Errorf("%w: %q is at version %d, refusing version %d", ErrVersionRefused, target, last, version)
	}

	return nil
}

func (e *Engine) writeRecord(t *txn.Transaction, target string, rec *record.Record) error {
	temp, err := t.GetTempPath(target)
	if err != nil {
		return err
	}

	ws, err := e.fs.OpenRecordWrite(temp)
	if err != nil {
		return err
	}

	if err := rec.Save(ws); err != nil {
		_ = ws.Abort()

		return err
	}

	return ws.Commit()
}

// Load reads and decodes the record at path, remembering its version so a
// later Save with a lower version is refused.
func (e *Engine) Load(ctx context.Context, path string) (*record.Record, error) {
	if err := e.checkOpen(ctx); err != nil {
		return nil, err
	}

	target, err := e.paths.Canonicalize(path)
	if err != nil {
		return nil, err
	}

	rc, err := e.fs.OpenRecordRead(target)
	if err != nil {
		return nil, err
	}

	defer func() { _ = rc.Close() }()

	rec, err := record.Load(rc)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.lastVersion[target] = rec.Version
	e.mu.Unlock()

	return rec, nil
}

// Erase removes path. If tx is nil, an implicit single-file transaction is
// used. A missing target is not an error (apply's tombstone branch
// treats a missing target as a no-op).
func (e *Engine) Erase(ctx context.Context, path string, tx *txn.Transaction) error {
	if err := e.checkOpen(ctx); err != nil {
		return err
	}

	target, err := e.paths.Canonicalize(path)
	if err != nil {
		return err
	}

	implicit := tx == nil

	t := tx
	if implicit {
		t, err = e.txns.Begin(target)
		if err != nil {
			return err
		}
	}

	stageErr := t.SetStagedValue(target, record.Tombstone)

	if err := e.txns.Finalize(t, implicit, stageErr == nil); err != nil {
		if stageErr != nil {
			return stageErr
		}

		return err
	}

	return stageErr
}

// Mkdir creates a directory at path. Directories are not transactional:
// the work/index directories are the only ones this engine needs to
// create outside of normal operation, and mkdir at the FS layer is already
// atomic at the single-syscall level the core spec assumes.
func (e *Engine) Mkdir(ctx context.Context, path string) error {
	if err := e.checkOpen(ctx); err != nil {
		return err
	}

	target, err := e.paths.Canonicalize(path)
	if err != nil {
		return err
	}

	if !e.fs.Mkdir(target) {
		return fmt.Errorf("sdstorage: mkdir %q failed", target)
	}

	return nil
}

// Index returns the engine's index manager, for named-index operations
// (Upsert/Remove/Rename/Lookup/PrefixSearch) and for wiring an
// autocomplete source such as cmd/sdstoragectl's browse REPL.
func (e *Engine) Index() *sdindex.Manager {
	return e.idx
}

// Fsck re-runs recovery over the work directory: completing any
// committed-but-not-applied transaction and sweeping stale temp files.
// Open already runs this once; exposed for cmd/sdstoragectl's fsck
// command, where an operator may want to confirm a clean state on demand.
func (e *Engine) Fsck() error {
	return e.txns.Fsck()
}
