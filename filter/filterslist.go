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

package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/discimage/odie/archive"
)

// Get opens path as a Filter, probing in order: a raw block device (opened
// as-is, with neither compression nor archive wrapping considered), an
// archive reference in MiSTer-style "archive.zip/member" form or a bare
// archive path (auto-detecting the first non-directory member), a
// compressed stream (gzip/bzip2/xz/lzip), and finally a plain file.
func Get(path string) (Filter, error) {
	if isBlockDevice(path) {
		return OpenFile(path)
	}

	if archive.IsArchivePath(path) {
		return getArchiveMember(path)
	}

	if kind := detectCompression(path); kind != compressionNone {
		return openCompressed(path, kind)
	}

	return OpenFile(path)
}

// GetResolver returns a Resolver rooted at whatever container path lives
// in: the archive path's containing archive, or path's own directory on a
// plain filesystem.
func GetResolver(path string) (Resolver, error) {
	if archive.IsArchivePath(path) {
		parsed, err := archive.ParsePath(path)
		if err != nil {
			return nil, fmt.Errorf("filter: parse archive path %s: %w", path, err)
		}
		if parsed != nil {
			return NewArchiveResolver(parsed.ArchivePath)
		}
	}
	return NewFileResolver(filepath.Dir(path)), nil
}

func getArchiveMember(path string) (Filter, error) {
	parsed, err := archive.ParsePath(path)
	if err != nil {
		return nil, fmt.Errorf("filter: parse archive path %s: %w", path, err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("filter: %s is not a recognized archive path", path)
	}

	arc, err := archive.Open(parsed.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("filter: open archive %s: %w", parsed.ArchivePath, err)
	}

	internalPath := parsed.InternalPath
	if internalPath == "" {
		entries, err := arc.List()
		if err != nil {
			_ = arc.Close()
			return nil, fmt.Errorf("filter: list archive %s: %w", parsed.ArchivePath, err)
		}
		internalPath, err = firstContainerMember(entries)
		if err != nil {
			_ = arc.Close()
			return nil, err
		}
	}

	return openArchiveMember(arc, true, internalPath, parsed.ArchivePath)
}

// firstContainerMember picks the entry most likely to be a container
// descriptor when an archive path names no internal member explicitly: the
// first file whose extension matches one of the formats a parser probes
// for, falling back to the first entry in archive order.
func firstContainerMember(entries []archive.FileInfo) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("filter: archive is empty")
	}
	descriptorExts := map[string]bool{
		".ccd": true, ".cue": true, ".cdi": true,
		".b6t": true, ".b5t": true, ".image": true,
		".imd": true,
	}
	for _, e := range entries {
		if descriptorExts[strings.ToLower(filepath.Ext(e.Name))] {
			return e.Name, nil
		}
	}
	return entries[0].Name, nil
}
