package sdfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

// Real is the production [FS] implementation, backed by the [os] package.
type Real struct {
	maxLineLen int
	guard      *os.File
}

// Option configures a [Real] at construction.
type Option func(*realOptions)

type realOptions struct {
	maxLineLen  int
	lockPath    string
	wantAdvLock bool
}

// WithMaxLineLen overrides the default line-buffer size (see
// [FS.MaxLineLen]).
func WithMaxLineLen(n int) Option {
	return func(o *realOptions) { o.maxLineLen = n }
}

// WithAdvisoryLock enables a whole-engine, cross-process advisory guard: a
// single flock on lockPath held for the lifetime of the [Real] value. This
// is not part of the transaction protocol (locking between live
// transactions is purely in-process, per the core spec's lock table) — it
// only protects against two separate OS processes accidentally opening the
// same root directory at once, which the core spec's Non-goals otherwise
// leave undefined.
func WithAdvisoryLock(lockPath string) Option {
	return func(o *realOptions) { o.wantAdvLock = true; o.lockPath = lockPath }
}

const defaultMaxLineLen = 64

// NewReal constructs a [Real] filesystem adapter.
func NewReal(opts ...Option) (*Real, error) {
	cfg := realOptions{maxLineLen: defaultMaxLineLen}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Real{maxLineLen: cfg.maxLineLen}

	if cfg.wantAdvLock {
		f, err := os.OpenFile(cfg.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("sdfs: opening advisory lock file: %w", err)
		}

		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("sdfs: acquiring advisory lock on %q: %w", cfg.lockPath, err)
		}

		r.guard = f
	}

	return r, nil
}

// Close releases the advisory lock, if one was acquired.
func (r *Real) Close() error {
	if r.guard == nil {
		return nil
	}

	f := r.guard
	r.guard = nil

	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return f.Close()
}

func (r *Real) MaxLineLen() int { return r.maxLineLen }

func (r *Real) Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

func (r *Real) IsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func (r *Real) Mkdir(path string) bool {
	return os.Mkdir(path, 0o755) == nil
}

func (r *Real) Remove(path string) bool {
	err := os.Remove(path)

	return err == nil || os.IsNotExist(err)
}

func (r *Real) Rename(oldpath, newpath string) bool {
	return os.Rename(oldpath, newpath) == nil
}

func (r *Real) OpenNextChild(dir string) (ChildIter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("sdfs: reading dir %q: %w", dir, err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}

	sort.Strings(names)

	return &realChildIter{names: names}, nil
}

type realChildIter struct {
	names []string
	pos   int
}

func (it *realChildIter) Next() (string, bool, error) {
	if it.pos >= len(it.names) {
		return "", false, nil
	}

	name := it.names[it.pos]
	it.pos++

	return name, true, nil
}

func (it *realChildIter) Close() error { return nil }

func (r *Real) OpenRecordRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (r *Real) OpenIndexRead(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (r *Real) OpenRecordWrite(path string) (WriteStream, error) {
	return newAtomicWriteStream(path), nil
}

func (r *Real) OpenIndexWrite(path string) (WriteStream, error) {
	return newAtomicWriteStream(path), nil
}

func (r *Real) OpenDescriptorWrite(path string) (WriteStream, error) {
	return newAtomicWriteStream(path), nil
}

// atomicWriteStream streams writes to an in-flight [atomic.WriteFile] call
// via an [io.Pipe]: the pipe's reader side is handed to natefinch/atomic,
// which writes it to a temp file and renames it into place, while the pipe's
// writer side is what callers of [WriteStream.Write] see. This lets
// streaming filter functions write incrementally while still getting
// natefinch/atomic's temp-file+fsync+rename durability guarantee.
type atomicWriteStream struct {
	pw   *io.PipeWriter
	done chan error
}

var errWriteStreamAborted = errors.New("sdfs: write stream aborted")

func newAtomicWriteStream(path string) *atomicWriteStream {
	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		done <- atomic.WriteFile(path, pr)
	}()

	return &atomicWriteStream{pw: pw, done: done}
}

func (s *atomicWriteStream) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

func (s *atomicWriteStream) Commit() error {
	if err := s.pw.Close(); err != nil {
		return fmt.Errorf("sdfs: closing write stream: %w", err)
	}

	if err := <-s.done; err != nil {
		return fmt.Errorf("sdfs: committing atomic write: %w", err)
	}

	return nil
}

func (s *atomicWriteStream) Abort() error {
	_ = s.pw.CloseWithError(errWriteStreamAborted)
	<-s.done

	return nil
}
