// Package sdfault provides a fault-injecting [sdfs.FS] decorator used to
// simulate a crash at an arbitrary point during a transaction commit; the
// txn package's post-commit apply failure test drives it.
package sdfault

import (
	"fmt"
	"io"
	"sync"

	"github.com/danmowehhuk/sdstorage/sdfs"
)

// Chaos wraps an [sdfs.FS] and fails the Nth counted mutating call
// (Mkdir, Remove, Rename, or a write stream's Commit) and every counted
// call after it, as a crash would. Reads are never faulted. Safe for
// concurrent use.
type Chaos struct {
	fs        sdfs.FS
	mu        sync.Mutex
	calls     int
	failAfter int // 1-indexed number of the first call to fail; 0 disables injection
}

// New wraps fs, failing the failAfter'th mutating call and all later ones.
// Pass 0 to disable fault injection (Chaos then behaves exactly like fs).
func New(fs sdfs.FS, failAfter int) *Chaos {
	return &Chaos{fs: fs, failAfter: failAfter}
}

// Calls reports how many mutating calls have been counted so far.
func (c *Chaos) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

func (c *Chaos) shouldFail() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++

	return c.failAfter > 0 && c.calls >= c.failAfter
}

func (c *Chaos) MaxLineLen() int { return c.fs.MaxLineLen() }

func (c *Chaos) Exists(path string) bool { return c.fs.Exists(path) }

func (c *Chaos) IsDir(path string) bool { return c.fs.IsDir(path) }

func (c *Chaos) Mkdir(path string) bool {
	if c.shouldFail() {
		return false
	}

	return c.fs.Mkdir(path)
}

func (c *Chaos) Remove(path string) bool {
	if c.shouldFail() {
		return false
	}

	return c.fs.Remove(path)
}

func (c *Chaos) Rename(oldpath, newpath string) bool {
	if c.shouldFail() {
		return false
	}

	return c.fs.Rename(oldpath, newpath)
}

func (c *Chaos) OpenNextChild(dir string) (sdfs.ChildIter, error) {
	return c.fs.OpenNextChild(dir)
}

func (c *Chaos) OpenRecordRead(path string) (io.ReadCloser, error) {
	return c.fs.OpenRecordRead(path)
}

func (c *Chaos) OpenIndexRead(path string) (io.ReadCloser, error) {
	return c.fs.OpenIndexRead(path)
}

func (c *Chaos) OpenRecordWrite(path string) (sdfs.WriteStream, error) {
	ws, err := c.fs.OpenRecordWrite(path)
	if err != nil {
		return nil, err
	}

	return &chaosWriteStream{c: c, inner: ws}, nil
}

func (c *Chaos) OpenIndexWrite(path string) (sdfs.WriteStream, error) {
	ws, err := c.fs.OpenIndexWrite(path)
	if err != nil {
		return nil, err
	}

	return &chaosWriteStream{c: c, inner: ws}, nil
}

func (c *Chaos) OpenDescriptorWrite(path string) (sdfs.WriteStream, error) {
	ws, err := c.fs.OpenDescriptorWrite(path)
	if err != nil {
		return nil, err
	}

	return &chaosWriteStream{c: c, inner: ws}, nil
}

var errInjected = fmt.Errorf("sdfault: injected failure")

type chaosWriteStream struct {
	c     *Chaos
	inner sdfs.WriteStream
}

func (s *chaosWriteStream) Write(p []byte) (int, error) {
	return s.inner.Write(p)
}

func (s *chaosWriteStream) Commit() error {
	if s.c.shouldFail() {
		_ = s.inner.Abort()

		return errInjected
	}

	return s.inner.Commit()
}

func (s *chaosWriteStream) Abort() error {
	return s.inner.Abort()
}

var _ sdfs.FS = (*Chaos)(nil)
