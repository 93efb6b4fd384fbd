package sdstorage

import "errors"

var (
	// ErrInvalidRoot is returned by Open when the configured root fails the
	// "/[A-Za-z0-9_]+" name check.
	ErrInvalidRoot = errors.New("sdstorage: invalid root")

	// ErrVersionRefused is returned by Engine.Save when the record's
	// version is lower than the version last deserialized from the same
	// path — a guard against an older writer clobbering a newer format.
	ErrVersionRefused = errors.New("sdstorage: refusing to write older version over newer on-disk record")

	// ErrClosed is returned by Engine.Begin, Save, Load, Erase and Mkdir
	// once Close has run.
	ErrClosed = errors.New("sdstorage: engine is closed")
)
