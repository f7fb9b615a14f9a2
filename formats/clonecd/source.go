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

package clonecd

import (
	"fmt"
	"io"

	"github.com/discimage/odie/filter"
)

// source binds stream 0 (the .img data fork) and, if present, stream 1
// (the .sub deinterleaved subchannel) for the extraction engine, and owns
// the sibling Filters the image facade closes alongside the primary one.
type source struct {
	data    io.ReaderAt
	sub     io.ReaderAt
	imgFile filter.Filter
	subFile filter.Filter
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	switch id {
	case 0:
		return s.data, nil
	case 1:
		if s.sub == nil {
			return nil, fmt.Errorf("clonecd: no subchannel stream open")
		}
		return s.sub, nil
	default:
		return nil, fmt.Errorf("clonecd: unknown stream %d", id)
	}
}

// Close releases the sibling .img/.sub Filters.
func (s *source) Close() error {
	var err error
	if s.imgFile != nil {
		err = s.imgFile.Close()
	}
	if s.subFile != nil {
		if cerr := s.subFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
