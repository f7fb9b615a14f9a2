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
	"os"
	"path/filepath"
	"time"
)

// fileFilter is a Filter backed directly by an *os.File: the common case
// of an uncompressed container member on a plain filesystem.
type fileFilter struct {
	f    *os.File
	info os.FileInfo
}

// OpenFile opens path as a plain, uncompressed Filter.
func OpenFile(path string) (Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filter: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filter: stat %s: %w", path, err)
	}
	return &fileFilter{f: f, info: info}, nil
}

func (ff *fileFilter) DataForkStream() (io.ReaderAt, error) { return ff.f, nil }

func (ff *fileFilter) ResourceForkStream() (io.ReaderAt, bool, error) {
	candidate := resourceForkPath(ff.f.Name())
	f, err := os.Open(candidate)
	if err != nil {
		return nil, false, nil
	}
	return f, true, nil
}

func (ff *fileFilter) Filename() string { return filepath.Base(ff.f.Name()) }
func (ff *fileFilter) BasePath() string { return filepath.Dir(ff.f.Name()) }
func (ff *fileFilter) Length() (int64, error) { return ff.info.Size(), nil }
func (ff *fileFilter) CreationTime() (time.Time, error)  { return ff.info.ModTime(), nil }
func (ff *fileFilter) LastWriteTime() (time.Time, error) { return ff.info.ModTime(), nil }
func (ff *fileFilter) Close() error                      { return ff.f.Close() }

// resourceForkPath derives the conventional AppleDouble resource-fork
// sidecar path (._name) DiskCopy 4.2 images may carry their tag data in.
func resourceForkPath(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "._"+name)
}

// fileResolver resolves sibling names relative to a base directory on a
// plain filesystem.
type fileResolver struct {
	baseDir string
}

// NewFileResolver returns a Resolver that opens sibling names relative to
// baseDir via Get, which probes archive and compression wrapping before
// falling back to OpenFile.
func NewFileResolver(baseDir string) Resolver {
	return &fileResolver{baseDir: baseDir}
}

func (r *fileResolver) Get(name string) (Filter, error) {
	return Get(filepath.Join(r.baseDir, name))
}
