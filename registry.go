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
	"fmt"

	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/formats/blindwrite"
	"github.com/discimage/odie/formats/cdrwin"
	"github.com/discimage/odie/formats/chd"
	"github.com/discimage/odie/formats/clonecd"
	"github.com/discimage/odie/formats/discjuggler"
	"github.com/discimage/odie/formats/diskcopy"
	"github.com/discimage/odie/formats/imd"
)

// Parsers lists every container parser this build recognizes, in probe
// order: the first whose Probe returns true wins. CHD and
// CloneCD/CDRWin/DiscJuggler carry strong
// magics or structural markers and are tried first; the two formats with
// the weakest probes (IMD's 4-byte ASCII marker, DiskCopy's header-shape
// check) are tried last so a stronger match never loses to a coincidental
// one.
var Parsers = []Parser{
	chd.Parser{},
	clonecd.Parser{},
	discjuggler.Parser{},
	cdrwin.Parser{},
	blindwrite.Parser{},
	diskcopy.Parser{},
	imd.Parser{},
}

// IdentifyPath probes path against every registered parser (via
// filter.Get's transparent compression/archive unwrapping) and returns the
// first one that accepts it, or ErrNotRecognized if none does.
func IdentifyPath(path string) (Parser, error) {
	f, err := filter.Get(path)
	if err != nil {
		return nil, NewIoError(err)
	}
	defer func() { _ = f.Close() }()

	for _, p := range Parsers {
		ok, err := p.Probe(f)
		if err != nil {
			return nil, err
		}
		if ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRecognized, path)
}

// OpenAnyPath identifies and opens path with whichever registered parser
// accepts it.
func OpenAnyPath(path string) (*Image, error) {
	p, err := IdentifyPath(path)
	if err != nil {
		return nil, err
	}
	return OpenPath(p, path)
}
