// Package sdfs is the storage adapter: a thin, boolean-returning capability
// interface over the underlying block filesystem, plus byte-stream
// factories for the engine's record, index, and transaction-descriptor
// files.
//
// Two variants are provided: [Real], backed by the host's [os] package, and
// [Mock], an in-memory fake for tests. Both satisfy [FS].
package sdfs

import "io"

// FS is the storage adapter's capability interface.
//
// Every boolean-returning method follows the core spec's failure model:
// false means "the operation did not happen," for any reason, with no
// partial success ever claimed. Implementations must not panic on missing
// files or directories — absence is a normal, representable outcome.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// Exists reports whether path refers to an existing file or directory.
	Exists(path string) bool

	// IsDir reports whether path exists and is a directory.
	IsDir(path string) bool

	// Mkdir creates path as a directory. Non-recursive: the parent must
	// already exist. Returns false if the parent is missing, path already
	// exists, or any other error occurs.
	Mkdir(path string) bool

	// Remove deletes the file or empty directory at path. Returns true if
	// path did not exist to begin with (removal of a missing target is
	// treated as success per the core spec's error-handling policy).
	Remove(path string) bool

	// Rename moves oldpath to newpath. Must be atomic at the filesystem
	// layer; this is a documented assumption, not something this
	// interface can enforce.
	Rename(oldpath, newpath string) bool

	// OpenNextChild opens an iterator over dir's direct children, returned
	// in a deterministic (sorted) order. The iterator must be closed by
	// the caller on every exit path.
	OpenNextChild(dir string) (ChildIter, error)

	// MaxLineLen returns the fixed line-buffer size used by the index
	// codec and filter machinery (core spec §5, default 64 bytes).
	MaxLineLen() int

	// OpenRecordRead opens a record file for reading.
	OpenRecordRead(path string) (io.ReadCloser, error)

	// OpenRecordWrite opens a record file for atomic, durable writing. The
	// new content is not visible at path until [WriteStream.Commit]
	// succeeds.
	OpenRecordWrite(path string) (WriteStream, error)

	// OpenIndexRead opens an index file for reading.
	OpenIndexRead(path string) (io.ReadCloser, error)

	// OpenIndexWrite opens an index file for atomic, durable writing.
	OpenIndexWrite(path string) (WriteStream, error)

	// OpenDescriptorWrite opens a transaction descriptor file for atomic,
	// durable writing.
	OpenDescriptorWrite(path string) (WriteStream, error)
}

// ChildIter iterates over a directory's direct children one at a time,
// mirroring the bounded, one-entry-at-a-time iteration a FAT16 firmware
// driver exposes (openNextFile). Must be closed on every exit path.
type ChildIter interface {
	// Next advances to the next child and reports its short name. ok is
	// false once the directory is exhausted; err is set only on a genuine
	// I/O failure, not on exhaustion.
	Next() (name string, ok bool, err error)

	// Close releases any resources held by the iterator.
	Close() error
}

// WriteStream is an opaque, atomic, durable output stream. Callers write
// through it like any [io.Writer] and then call exactly one of Commit or
// Abort; neither is optional, and calling neither leaves no data visible
// (the temp file is simply abandoned).
type WriteStream interface {
	io.Writer

	// Commit finalizes the write: the underlying temp file is synced and
	// atomically renamed into place. After Commit returns nil, the new
	// content is durably visible at the target path.
	Commit() error

	// Abort discards everything written so far. The target path is left
	// untouched.
	Abort() error
}
