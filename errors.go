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

package odie

import "github.com/discimage/odie/errs"

// The §7 error kinds, re-exported at the root so callers of the Image
// facade never need to import the internal errs package directly.
var (
	ErrNotRecognized     = errs.ErrNotRecognized
	ErrOutOfRange        = errs.ErrOutOfRange
	ErrUnsupportedTag    = errs.ErrUnsupportedTag
	ErrNotPresent        = errs.ErrNotPresent
	ErrNotYetImplemented = errs.ErrNotYetImplemented
	ErrAborted           = errs.ErrAborted
)

type (
	// MalformedError reports a structural invariant violation at a known
	// offset within a descriptor or data stream.
	MalformedError = errs.MalformedError
	// UnsupportedVersionError reports a container version the parser does
	// not recognize.
	UnsupportedVersionError = errs.UnsupportedVersionError
	// IoError wraps a failure reported by the underlying filter stream.
	IoError = errs.IoError
)

// NewMalformedError constructs a MalformedError.
func NewMalformedError(detail string, offset int64) error {
	return errs.NewMalformedError(detail, offset)
}

// NewUnsupportedVersionError constructs an UnsupportedVersionError.
func NewUnsupportedVersionError(found string, fatal bool) error {
	return errs.NewUnsupportedVersionError(found, fatal)
}

// NewIoError wraps inner as an IoError, or returns nil if inner is nil.
func NewIoError(inner error) error {
	return errs.NewIoError(inner)
}
