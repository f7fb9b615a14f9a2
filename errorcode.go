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

import (
	"errors"
	"os"
)

// ErrorNumber is the process exit code cmd/odie returns, covering both
// argument/open-time failures and the combined decode+verify outcome its
// "verify" subcommand reports.
type ErrorNumber int

const (
	NoError ErrorNumber = iota
	HelpRequested
	MissingArgument
	UnexpectedArgumentCount
	CannotOpenFile
	UnrecognizedFormat
	FormatNotFound

	// NotVerificable: the image opened and decoded, but carries no stored
	// digest and no EDC/ECC-bearing sector type to check against.
	NotVerificable

	// The remaining values classify "verify"'s combined outcome: one
	// tri-state result for the whole-image digest, one for per-sector
	// EDC/ECC. "NotVerified" in a name means that axis had no applicable
	// check (tri-state null), not that it was skipped by choice.
	BadSectorsImageNotVerified
	CorrectSectorsImageNotVerified
	BadImageSectorsNotVerified
	BadImageBadSectors
	CorrectSectorsBadImage
	CorrectImageSectorsNotVerified
	CorrectImageBadSectors
)

// String implements fmt.Stringer.
func (e ErrorNumber) String() string {
	switch e {
	case NoError:
		return "no error"
	case HelpRequested:
		return "help requested"
	case MissingArgument:
		return "missing argument"
	case UnexpectedArgumentCount:
		return "unexpected argument count"
	case CannotOpenFile:
		return "cannot open file"
	case UnrecognizedFormat:
		return "unrecognized format"
	case FormatNotFound:
		return "format not found"
	case NotVerificable:
		return "not verificable"
	case BadSectorsImageNotVerified:
		return "bad sectors, image not verified"
	case CorrectSectorsImageNotVerified:
		return "correct sectors, image not verified"
	case BadImageSectorsNotVerified:
		return "bad image, sectors not verified"
	case BadImageBadSectors:
		return "bad image, bad sectors"
	case CorrectSectorsBadImage:
		return "correct sectors, bad image"
	case CorrectImageSectorsNotVerified:
		return "correct image, sectors not verified"
	case CorrectImageBadSectors:
		return "correct image, bad sectors"
	default:
		return "unknown error"
	}
}

// ClassifyError maps an error returned by the engine to its ErrorNumber, for
// the open/decode path of cmd/odie.
func ClassifyError(err error) ErrorNumber {
	if err == nil {
		return NoError
	}

	var malformed *MalformedError
	var unsupportedVersion *UnsupportedVersionError
	var ioErr *IoError

	switch {
	case errors.Is(err, ErrNotRecognized):
		return UnrecognizedFormat
	case errors.As(err, &malformed):
		return UnrecognizedFormat
	case errors.As(err, &unsupportedVersion):
		return UnrecognizedFormat
	case errors.As(err, &ioErr):
		return CannotOpenFile
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrUnsupportedTag),
		errors.Is(err, ErrNotPresent), errors.Is(err, ErrNotYetImplemented),
		errors.Is(err, ErrAborted):
		return FormatNotFound
	default:
		return FormatNotFound
	}
}

// ClassifyVerifyResult combines the whole-image digest result and the
// per-sector EDC/ECC result (each a tri-state true/false/nil, per §4.7)
// into the single ErrorNumber the "verify" subcommand exits with.
func ClassifyVerifyResult(imageOK, sectorsOK *bool) ErrorNumber {
	if imageOK == nil && sectorsOK == nil {
		return NotVerificable
	}

	switch {
	case imageOK == nil && sectorsOK != nil && !*sectorsOK:
		return BadSectorsImageNotVerified
	case imageOK == nil && sectorsOK != nil && *sectorsOK:
		return CorrectSectorsImageNotVerified
	case sectorsOK == nil && imageOK != nil && !*imageOK:
		return BadImageSectorsNotVerified
	case imageOK != nil && sectorsOK != nil && !*imageOK && !*sectorsOK:
		return BadImageBadSectors
	case imageOK != nil && sectorsOK != nil && !*imageOK && *sectorsOK:
		return CorrectSectorsBadImage
	case sectorsOK == nil && imageOK != nil && *imageOK:
		return CorrectImageSectorsNotVerified
	case imageOK != nil && sectorsOK != nil && *imageOK && !*sectorsOK:
		return CorrectImageBadSectors
	default:
		return NoError
	}
}

// Exit calls os.Exit with the process exit code for err (0 for nil).
func Exit(err error) {
	os.Exit(int(ClassifyError(err)))
}
