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
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/discimage/odie/archive"
)

// archiveFilter is a Filter over one member of a ZIP/7z/RAR archive,
// letting a .ccd+.img+.sub or .cue+.bin set stored inside a single archive
// open the same way a plain sibling set on disk would.
type archiveFilter struct {
	arc          archive.Archive
	ownsArchive  bool
	internalPath string
	baseDir      string
	size         int64
	data         io.ReaderAt
	closer       io.Closer
}

func openArchiveMember(arc archive.Archive, ownsArchive bool, internalPath, baseDir string) (Filter, error) {
	data, size, closer, err := arc.OpenReaderAt(internalPath)
	if err != nil {
		return nil, fmt.Errorf("filter: open %s in archive: %w", internalPath, err)
	}
	return &archiveFilter{
		arc:          arc,
		ownsArchive:  ownsArchive,
		internalPath: internalPath,
		baseDir:      baseDir,
		size:         size,
		data:         data,
		closer:       closer,
	}, nil
}

func (a *archiveFilter) DataForkStream() (io.ReaderAt, error) { return a.data, nil }

func (a *archiveFilter) ResourceForkStream() (io.ReaderAt, bool, error) {
	return nil, false, nil
}

func (a *archiveFilter) Filename() string { return filepath.Base(a.internalPath) }
func (a *archiveFilter) BasePath() string { return a.baseDir }
func (a *archiveFilter) Length() (int64, error) { return a.size, nil }

// CreationTime and LastWriteTime are not tracked per-member by the archive
// package; it reports List()'s FileInfo without timestamps, so these return
// the zero time.Time.
func (a *archiveFilter) CreationTime() (time.Time, error)  { return time.Time{}, nil }
func (a *archiveFilter) LastWriteTime() (time.Time, error) { return time.Time{}, nil }

func (a *archiveFilter) Close() error {
	err := a.closer.Close()
	if a.ownsArchive {
		if cerr := a.arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// archiveResolver resolves sibling names against other members of the same
// open archive, matching by base name so a .ccd's resolver finds its .img
// and .sub regardless of the internal directory the archive stores them
// under.
type archiveResolver struct {
	arc         archive.Archive
	archivePath string
}

// NewArchiveResolver returns a Resolver over every member of the archive at
// archivePath, used once a parser's primary Filter has been identified as
// living inside one.
func NewArchiveResolver(archivePath string) (Resolver, error) {
	arc, err := archive.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("filter: open archive %s: %w", archivePath, err)
	}
	return &archiveResolver{arc: arc, archivePath: archivePath}, nil
}

func (r *archiveResolver) Get(name string) (Filter, error) {
	entries, err := r.arc.List()
	if err != nil {
		return nil, fmt.Errorf("filter: list archive %s: %w", r.archivePath, err)
	}
	want := strings.ToLower(filepath.Base(name))
	for _, e := range entries {
		if strings.ToLower(filepath.Base(e.Name)) == want {
			return openArchiveMember(r.arc, false, e.Name, r.archivePath)
		}
	}
	return nil, fmt.Errorf("filter: %s not found in archive %s", name, r.archivePath)
}
