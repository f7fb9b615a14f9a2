// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of odie.
//
// odie is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// odie is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with odie.  If not, see <https://www.gnu.org/licenses/>.

// Package errs defines the §7 error kinds shared by every layer of the
// engine (format parsers, the extraction engine, the verifier) without
// creating an import cycle back into the root odie package, which wraps
// these as its public API.
package errs

import "fmt"

// ErrNotRecognized is returned by a format parser's probe when the stream
// does not match its container.
var ErrNotRecognized = fmt.Errorf("odie: container not recognized")

// ErrOutOfRange is returned when an LBA lies outside every track, or a
// multi-sector read would cross a track boundary.
var ErrOutOfRange = fmt.Errorf("odie: lba out of range")

// ErrUnsupportedTag is returned when a tag is not defined for a track's
// stored shape.
var ErrUnsupportedTag = fmt.Errorf("odie: tag not supported for this track")

// ErrNotPresent is returned when a disk-level tag (CD-TEXT, Full TOC, ...)
// is absent from the container.
var ErrNotPresent = fmt.Errorf("odie: tag not present on this disc")

// ErrNotYetImplemented marks a contractually-defined but unimplemented
// operation, such as Q16 subchannel reconstruction.
var ErrNotYetImplemented = fmt.Errorf("odie: not yet implemented")

// ErrAborted is returned when a caller-cancelled operation stops between
// sector-sized work units.
var ErrAborted = fmt.Errorf("odie: operation aborted")

// MalformedError reports a structural invariant violation at a known
// offset within a descriptor or data stream.
type MalformedError struct {
	Detail string
	Offset int64
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("odie: malformed descriptor at offset %d: %s", e.Offset, e.Detail)
}

// NewMalformedError constructs a MalformedError.
func NewMalformedError(detail string, offset int64) error {
	return &MalformedError{Detail: detail, Offset: offset}
}

// UnsupportedVersionError reports a container version the parser does not
// recognize. CloneCD treats this as a non-fatal warning; every other
// container treats it as fatal.
type UnsupportedVersionError struct {
	Found string
	Fatal bool
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("odie: unsupported version %q", e.Found)
}

// NewUnsupportedVersionError constructs an UnsupportedVersionError.
func NewUnsupportedVersionError(found string, fatal bool) error {
	return &UnsupportedVersionError{Found: found, Fatal: fatal}
}

// IoError wraps a failure reported by the underlying filter stream.
type IoError struct {
	Inner error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("odie: i/o error: %v", e.Inner)
}

func (e *IoError) Unwrap() error {
	return e.Inner
}

// NewIoError wraps inner as an IoError, or returns nil if inner is nil.
func NewIoError(inner error) error {
	if inner == nil {
		return nil
	}
	return &IoError{Inner: inner}
}
