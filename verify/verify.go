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

// Package verify implements the verification engine: whole-image digest
// comparison and per-sector EDC/ECC validation. Digest primitives (SHA-1,
// MD5, CRC32) come straight from the standard library, since nothing in
// this module's dependency set offers them as anything but that. The CD
// EDC/ECC algebra itself is core engine logic and is implemented from
// scratch (edc.go, ecc.go, sector.go).
package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
	"hash/crc32"
	"io"

	"github.com/discimage/odie/errs"
)

// Algorithm identifies which digest a stored hash mapping supplies.
type Algorithm int

const (
	AlgorithmSHA1 Algorithm = iota
	AlgorithmMD5
	AlgorithmCRC32
)

// Digests maps a data stream's identity (a filter path or other stable key)
// to its stored, expected digest bytes for one algorithm.
type Digests struct {
	Algorithm Algorithm
	Values    map[string][]byte
}

// chunkSize is the unit of work the verifier reads between checks of an
// aborted flag under the cooperative-cancellation model: one mebibyte.
const chunkSize = 1 << 20

// newHash returns the hash.Hash for an algorithm.
func newHash(alg Algorithm) hash.Hash {
	switch alg {
	case AlgorithmSHA1:
		return sha1.New()
	case AlgorithmMD5:
		return md5.New()
	default:
		return crc32.NewIEEE()
	}
}

// Stream is one distinct underlying data stream of an open image, keyed by
// filter identity so that multiple tracks backed by the same file are
// hashed once, not once per track.
type Stream struct {
	Identity string
	Reader   io.Reader
}

// VerifyMediaImage computes a single preferred digest (SHA-1, then MD5,
// then CRC32, the first for which a stored value exists) over each
// distinct stream and compares it to the stored mapping. It returns a
// tri-state: true if every stream matches, false if any stream mismatches,
// nil if no supported digest is available to compare against.
//
// aborted is polled between chunk-sized reads of every stream; if it ever
// reports true, verification stops and returns an aborted error.
func VerifyMediaImage(streams []Stream, digests []Digests, aborted func() bool) (*bool, error) {
	chosen, ok := pickDigests(digests)
	if !ok {
		return nil, nil
	}

	allMatch := true
	for _, s := range streams {
		expected, ok := chosen.Values[s.Identity]
		if !ok {
			continue
		}
		h := newHash(chosen.Algorithm)
		buf := make([]byte, chunkSize)
		for {
			if aborted != nil && aborted() {
				return nil, errs.ErrAborted
			}
			n, err := s.Reader.Read(buf)
			if n > 0 {
				h.Write(buf[:n])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
		}
		if !bytesEqual(h.Sum(nil), expected) {
			allMatch = false
		}
	}
	return &allMatch, nil
}

// pickDigests selects the first Digests entry in preference order
// SHA-1 > MD5 > CRC32.
func pickDigests(digests []Digests) (Digests, bool) {
	for _, want := range []Algorithm{AlgorithmSHA1, AlgorithmMD5, AlgorithmCRC32} {
		for _, d := range digests {
			if d.Algorithm == want && len(d.Values) > 0 {
				return d, true
			}
		}
	}
	return Digests{}, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
