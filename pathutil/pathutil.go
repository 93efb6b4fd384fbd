// Package pathutil canonicalizes application-supplied names under a single
// configured root directory and validates FAT16 short names.
//
// Everything here operates on forward-slash paths regardless of the build
// host's OS: the target filesystem is always FAT16 on a removable block
// device, never the host's own filesystem namespace, so path/filepath's
// host-specific separator handling does not apply.
package pathutil

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxPathLen is the default bound on any canonicalized path, matching
// the compile-time buffer size suggested by the core spec (§4.1).
const DefaultMaxPathLen = 64

var (
	// ErrInvalidRoot is returned when the configured root is malformed.
	ErrInvalidRoot = errors.New("pathutil: invalid root")

	// ErrPathTooLong is returned when a canonicalized path would overflow
	// the configured bound. The spec requires this to be a hard error, not
	// silent truncation.
	ErrPathTooLong = errors.New("pathutil: path exceeds maximum length")

	// ErrInvalidName is returned for empty, whitespace-only, or otherwise
	// structurally invalid names.
	ErrInvalidName = errors.New("pathutil: invalid name")

	// ErrInvalidShortName is returned when a basename fails FAT16 8.3
	// validation.
	ErrInvalidShortName = errors.New("pathutil: invalid FAT16 short name")
)

// Helper canonicalizes names under a single root and validates short names.
//
// A Helper is immutable after construction and safe for concurrent use.
type Helper struct {
	root       string
	maxPathLen int
}

// New creates a Helper rooted at root. root is trimmed of surrounding
// whitespace; a missing leading "/" is added; a root containing any further
// "/" is rejected (the core spec permits only a single path segment).
//
// maxPathLen bounds every path this Helper produces; pass 0 to use
// [DefaultMaxPathLen].
func New(root string, maxPathLen int) (*Helper, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRoot)
	}

	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}

	if strings.Count(trimmed, "/") > 1 {
		return nil, fmt.Errorf("%w: %q contains more than one path segment", ErrInvalidRoot, root)
	}

	if maxPathLen <= 0 {
		maxPathLen = DefaultMaxPathLen
	}

	if len(trimmed) > maxPathLen {
		return nil, fmt.Errorf("%w: root %q", ErrPathTooLong, trimmed)
	}

	return &Helper{root: trimmed, maxPathLen: maxPathLen}, nil
}

// Root returns the canonical root path, e.g. "/DATA".
func (h *Helper) Root() string {
	return h.root
}

// WorkDir returns the transaction work directory, "<root>/~WORK".
func (h *Helper) WorkDir() string {
	return h.root + "/~WORK"
}

// IdxDir returns the index directory, "<root>/~IDX".
func (h *Helper) IdxDir() string {
	return h.root + "/~IDX"
}

// Canonicalize resolves an application-supplied name to a bounded absolute
// path under the root.
//
// Rules (core spec §4.1): if name already begins with "root/", it is
// returned as-is; if it begins with "/", the result is root+name;
// otherwise the result is root+"/"+name.
func (h *Helper) Canonicalize(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}

	var out string

	switch {
	case strings.HasPrefix(name, h.root+"/"):
		out = name
	case strings.HasPrefix(name, "/"):
		out = h.root + name
	default:
		out = h.root + "/" + name
	}

	if len(out) > h.maxPathLen {
		return "", fmt.Errorf("%w: %q canonicalizes to %d bytes (max %d)", ErrPathTooLong, name, len(out), h.maxPathLen)
	}

	return out, nil
}

// IndexPath derives the path of a named index file: "<idxDir>/<name>.idx".
func (h *Helper) IndexPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty index name", ErrInvalidName)
	}

	out := h.IdxDir() + "/" + name + ".idx"
	if len(out) > h.maxPathLen {
		return "", fmt.Errorf("%w: index %q path is %d bytes (max %d)", ErrPathTooLong, name, len(out), h.maxPathLen)
	}

	return out, nil
}

// Dir returns everything up to (not including) the last "/" in an absolute
// path, or "/" if the path has no further slash beyond the first character.
func Dir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidName)
	}

	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/", nil
	}

	return path[:idx], nil
}

// Base returns everything after the last "/" in an absolute path.
func Base(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidName)
	}

	idx := strings.LastIndex(path, "/")

	return path[idx+1:], nil
}

// fat16Punctuation is the legacy FAT16 short-name punctuation set allowed in
// addition to letters and digits, per core spec §4.1.
const fat16Punctuation = "!#$%&'()-@^_`{}~"

// ValidateShortName checks that name is a legal FAT16 8.3 short name: length
// 1-8, optionally followed by a single "." and an extension of length 1-3,
// using only ASCII letters, digits, the legacy punctuation set, and an
// interior ".". A leading or trailing "." is rejected.
func ValidateShortName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidShortName)
	}

	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %q has a leading or trailing dot", ErrInvalidShortName, name)
	}

	base, ext, hasExt := strings.Cut(name, ".")
	if hasExt && strings.Contains(ext, ".") {
		return fmt.Errorf("%w: %q has more than one dot", ErrInvalidShortName, name)
	}

	if len(base) < 1 || len(base) > 8 {
		return fmt.Errorf("%w: %q base is %d chars (want 1-8)", ErrInvalidShortName, name, len(base))
	}

	if hasExt && (len(ext) < 1 || len(ext) > 3) {
		return fmt.Errorf("%w: %q extension is %d chars (want 1-3)", ErrInvalidShortName, name, len(ext))
	}

	for _, r := range base + ext {
		if !isShortNameChar(r) {
			return fmt.Errorf("%w: %q contains illegal character %q", ErrInvalidShortName, name, r)
		}
	}

	return nil
}

func isShortNameChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case strings.ContainsRune(fat16Punctuation, r):
		return true
	default:
		return false
	}
}
