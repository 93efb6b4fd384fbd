// Package sdindex implements the sorted flat-file string index: a single
// "key=value\n" file per index name, rewritten by streaming it through a
// small filter (Upsert/Remove/Rename) into a staged temp file owned by a
// transaction, or scanned read-only (Lookup/PrefixSearch).
package sdindex

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/danmowehhuk/sdstorage/pathutil"
	"github.com/danmowehhuk/sdstorage/sdfs"
	"github.com/danmowehhuk/sdstorage/txn"
)

// Manager resolves index names to files under the configured index
// directory and performs the sorted-index operations over them.
type Manager struct {
	fs    sdfs.FS
	paths *pathutil.Helper
	txns  *txn.Manager
}

// NewManager constructs an index Manager. txns is used to open an implicit
// single-file transaction when a mutating call is not given one.
func NewManager(fs sdfs.FS, paths *pathutil.Helper, txns *txn.Manager) *Manager {
	return &Manager{fs: fs, paths: paths, txns: txns}
}

// Lookup scans name's index for key and returns its value. A missing index
// file is treated as an empty index (not found, no error).
func (m *Manager) Lookup(name, key string) (string, bool, error) {
	idxPath, err := m.paths.IndexPath(name)
	if err != nil {
		return "", false, err
	}

	return m.lookupAt(idxPath, key)
}

func (m *Manager) lookupAt(idxPath, key string) (string, bool, error) {
	if !m.fs.Exists(idxPath) {
		return "", false, nil
	}

	rc, err := m.fs.OpenIndexRead(idxPath)
	if err != nil {
		return "", false, err
	}

	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, m.fs.MaxLineLen()), m.fs.MaxLineLen())

	for sc.Scan() {
		k, v, ok := parseLine(sc.Text())
		if !ok {
			return "", false, fmt.Errorf("%w: %q", ErrMalformedLine, sc.Text())
		}

		if k == key {
			return v, true, nil
		}
	}

	return "", false, sc.Err()
}

// Upsert inserts or updates key=value in name's index, preserving sort
// order. tx may be nil to use an implicit single-file transaction.
func (m *Manager) Upsert(name, key, value string, tx *txn.Transaction) error {
	idxPath, err := m.paths.IndexPath(name)
	if err != nil {
		return err
	}

	return m.mutate(idxPath, tx, func(src *bufio.Scanner, dst *bufio.Writer) error {
		return upsertFilter(src, dst, key, value)
	})
}

// Remove deletes key from name's index if present. A missing key is a
// no-op, not an error.
func (m *Manager) Remove(name, key string, tx *txn.Transaction) error {
	idxPath, err := m.paths.IndexPath(name)
	if err != nil {
		return err
	}

	return m.mutate(idxPath, tx, func(src *bufio.Scanner, dst *bufio.Writer) error {
		return removeFilter(src, dst, key)
	})
}

// Rename moves oldKey's entry to newKey, reordering it into sort position.
// Fails with ErrNotFound if oldKey is absent, or ErrKeyExists if newKey is
// already present — both checked as a read-only precondition scan before
// any output stream is opened, so a failed Rename leaves the index
// byte-for-byte unchanged.
func (m *Manager) Rename(name, oldKey, newKey string, tx *txn.Transaction) error {
	idxPath, err := m.paths.IndexPath(name)
	if err != nil {
		return err
	}

	value, oldFound, newExists, err := m.renamePrecondition(idxPath, oldKey, newKey)
	if err != nil {
		return err
	}

	if !oldFound {
		return fmt.Errorf("%w: %q", ErrNotFound, oldKey)
	}

	if newExists {
		return fmt.Errorf("%w: %q", ErrKeyExists, newKey)
	}

	return m.mutate(idxPath, tx, func(src *bufio.Scanner, dst *bufio.Writer) error {
		return renameRewrite(src, dst, oldKey, newKey, value)
	})
}

func (m *Manager) renamePrecondition(idxPath, oldKey, newKey string) (value string, oldFound, newExists bool, err error) {
	if !m.fs.Exists(idxPath) {
		return "", false, false, nil
	}

	rc, err := m.fs.OpenIndexRead(idxPath)
	if err != nil {
		return "", false, false, err
	}

	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, m.fs.MaxLineLen()), m.fs.MaxLineLen())

	for sc.Scan() {
		k, v, ok := parseLine(sc.Text())
		if !ok {
			return "", false, false, fmt.Errorf("%w: %q", ErrMalformedLine, sc.Text())
		}

		if k == oldKey {
			oldFound = true
			value = v
		}

		if k == newKey {
			newExists = true
		}
	}

	if err := sc.Err(); err != nil {
		return "", false, false, err
	}

	return value, oldFound, newExists, nil
}

// mutate runs filter over idxPath's current contents (or an empty source
// if the index does not yet exist) into a staged temp file, using tx if
// given or an implicit single-file transaction otherwise.
func (m *Manager) mutate(idxPath string, tx *txn.Transaction, filter func(src *bufio.Scanner, dst *bufio.Writer) error) error {
	implicit := tx == nil

	t := tx

	if implicit {
		var err error

		t, err = m.txns.Begin(idxPath)
		if err != nil {
			return err
		}
	}

	filterErr := m.rewrite(idxPath, t, filter)

	return m.finish(t, implicit, filterErr)
}

func (m *Manager) finish(t *txn.Transaction, implicit bool, opErr error) error {
	if err := m.txns.Finalize(t, implicit, opErr == nil); err != nil {
		if opErr != nil {
			return opErr
		}

		return err
	}

	return opErr
}

func (m *Manager) rewrite(idxPath string, t *txn.Transaction, filter func(src *bufio.Scanner, dst *bufio.Writer) error) error {
	temp, err := t.GetTempPath(idxPath)
	if err != nil {
		return err
	}

	ws, err := m.fs.OpenIndexWrite(temp)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(ws)

	var (
		rc io.ReadCloser
		sc *bufio.Scanner
	)

	if m.fs.Exists(idxPath) {
		rc, err = m.fs.OpenIndexRead(idxPath)
		if err != nil {
			_ = ws.Abort()

			return err
		}

		sc = bufio.NewScanner(rc)
		sc.Buffer(make([]byte, 0, m.fs.MaxLineLen()), m.fs.MaxLineLen())
	} else {
		sc = bufio.NewScanner(strings.NewReader(""))
	}

	filterErr := filter(sc, bw)

	if rc != nil {
		_ = rc.Close()
	}

	if filterErr == nil {
		filterErr = sc.Err()
	}

	if filterErr != nil {
		_ = ws.Abort()

		return filterErr
	}

	if err := bw.Flush(); err != nil {
		_ = ws.Abort()

		return err
	}

	return ws.Commit()
}
