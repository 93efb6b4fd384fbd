package sdstorage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danmowehhuk/sdstorage/pathutil"
	"github.com/danmowehhuk/sdstorage/sdfs"
)

// defaultLineBufferSize is the default bound on any one index or record
// line, matching the core spec's fixed-buffer discipline (§5).
const defaultLineBufferSize = 64

// rootNamePattern is the single-segment root name the core spec's Facade
// validates before accepting a configuration. It is matched after
// surrounding whitespace and one leading "/" are removed, so "DATA" and
// "/DATA" are both accepted.
var rootNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Config configures a call to Open.
type Config struct {
	// ChipSelect identifies the physical chip-select line addressing the
	// target SD card. It is opaque to this package; Real's FS construction
	// does not use it directly (there is no physical device on the build
	// host), but it is carried through so callers on embedded targets can
	// thread it to their own block-device driver.
	ChipSelect string

	// RootDir is the single top-level directory name (no further path
	// segments) under which this engine's files live, e.g. "DATA".
	RootDir string

	// ErrorHook, if set, is invoked with every recoverable-but-notable
	// error: a post-commit apply failure, an fsck apply failure, a failed
	// cleanup sweep.
	ErrorHook func(error)

	// LineBufferSize sets the line-buffer size of the default OS-backed
	// adapter, which bounds index line length. Zero defaults to
	// defaultLineBufferSize. It is not applied when FS is set, and record
	// lines are not bounded by it.
	LineBufferSize int

	// FS overrides the storage adapter. Nil defaults to a real,
	// OS-backed adapter with no cross-process advisory guard.
	FS sdfs.FS
}

func (c Config) validate() error {
	name := strings.TrimPrefix(strings.TrimSpace(c.RootDir), "/")
	if !rootNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidRoot, c.RootDir, rootNamePattern.String())
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.LineBufferSize <= 0 {
		c.LineBufferSize = defaultLineBufferSize
	}

	return c
}

func (c Config) buildFS() (sdfs.FS, error) {
	if c.FS != nil {
		return c.FS, nil
	}

	return sdfs.NewReal(sdfs.WithMaxLineLen(c.LineBufferSize))
}

func (c Config) buildPaths() (*pathutil.Helper, error) {
	return pathutil.New(c.RootDir, pathutil.DefaultMaxPathLen)
}
