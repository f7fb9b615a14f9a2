// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package diskcopy

import (
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/discimage/odie/image"
)

type memFilter struct{ data []byte }

func (m *memFilter) DataForkStream() (io.ReaderAt, error)       { return bytesReaderAt(m.data), nil }
func (m *memFilter) ResourceForkStream() (io.ReaderAt, bool, error) { return nil, false, nil }
func (m *memFilter) Filename() string                            { return "test.image" }
func (m *memFilter) BasePath() string                             { return "" }
func (m *memFilter) Length() (int64, error)                       { return int64(len(m.data)), nil }
func (m *memFilter) CreationTime() (time.Time, error)             { return time.Time{}, nil }
func (m *memFilter) LastWriteTime() (time.Time, error)            { return time.Time{}, nil }
func (m *memFilter) Close() error                                 { return nil }

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func bytesReaderAt(data []byte) io.ReaderAt { return byteReaderAt(data) }

func buildImage(dataSize uint32, diskFormat byte) []byte {
	hdr := make([]byte, headerSize)
	name := "TestDisk"
	hdr[0] = byte(len(name))
	copy(hdr[1:], name)
	binary.BigEndian.PutUint32(hdr[0x40:0x44], dataSize)
	binary.BigEndian.PutUint32(hdr[0x44:0x48], 0)
	binary.BigEndian.PutUint32(hdr[0x48:0x4C], 0)
	binary.BigEndian.PutUint32(hdr[0x4C:0x50], 0)
	hdr[0x50] = diskFormat
	hdr[0x51] = 0x12
	binary.BigEndian.PutUint16(hdr[0x52:0x54], privateWord)

	data := make([]byte, dataSize)
	for i := range data {
		data[i] = byte(i)
	}
	return append(hdr, data...)
}

func TestProbeAcceptsValidHeader(t *testing.T) {
	f := &memFilter{data: buildImage(1024, 3)}
	ok, err := Parser{}.Probe(f)
	if err != nil || !ok {
		t.Fatalf("expected accept, got ok=%v err=%v", ok, err)
	}
}

func TestProbeRejectsBadPrivateWord(t *testing.T) {
	img := buildImage(1024, 3)
	img[0x52] = 0xFF
	f := &memFilter{data: img}
	ok, err := Parser{}.Probe(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected reject for bad private word")
	}
}

func TestProbeRejectsUnalignedDataSize(t *testing.T) {
	f := &memFilter{data: buildImage(500, 3)}
	ok, _ := Parser{}.Probe(f)
	if ok {
		t.Fatal("expected reject for dataSize not a multiple of 512")
	}
}

func TestParseBuildsSingleDataTrack(t *testing.T) {
	f := &memFilter{data: buildImage(1024, 1)}
	layout, src, err := Parser{}.Parse(f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracks := layout.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	tr := tracks[0]
	if tr.StartLBA != 0 || tr.EndLBA != 1 {
		t.Fatalf("expected lba 0-1, got %d-%d", tr.StartLBA, tr.EndLBA)
	}
	if tr.FileOffset != headerSize {
		t.Fatalf("expected file offset %d, got %d", headerSize, tr.FileOffset)
	}

	stream, err := src.Stream(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := make([]byte, 512)
	if _, err := stream.ReadAt(buf, tr.FileOffset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf[0] != 0 || buf[1] != 1 {
		t.Fatalf("unexpected payload bytes: %v", buf[:4])
	}

	tag, ok := layout.DiskTag(image.DiskTagCDMCN)
	if !ok || len(tag) == 0 {
		t.Fatalf("expected disk tag to carry disk name, got %q ok=%v", tag, ok)
	}
}

func TestParseRejectsUnalignedDataSize(t *testing.T) {
	f := &memFilter{data: buildImage(500, 1)}
	if _, _, err := (Parser{}).Parse(f, nil); err == nil {
		t.Fatal("expected error for unaligned dataSize")
	}
}

func TestDiskFormatName(t *testing.T) {
	cases := map[byte]string{0: "400K", 1: "800K", 2: "720K", 3: "1440K", 4: "Twiggy871K", 9: "unknown"}
	for b, want := range cases {
		if got := diskFormatName(b); got != want {
			t.Errorf("diskFormatName(%d) = %q, want %q", b, got, want)
		}
	}
}
