// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package imd

import (
	"bytes"
	"io"
	"testing"
	"time"
)

type memFilter struct{ data []byte }

func (m *memFilter) DataForkStream() (io.ReaderAt, error)           { return byteReaderAtSlice(m.data), nil }
func (m *memFilter) ResourceForkStream() (io.ReaderAt, bool, error) { return nil, false, nil }
func (m *memFilter) Filename() string                               { return "test.imd" }
func (m *memFilter) BasePath() string                                { return "" }
func (m *memFilter) Length() (int64, error)                          { return int64(len(m.data)), nil }
func (m *memFilter) CreationTime() (time.Time, error)                { return time.Time{}, nil }
func (m *memFilter) LastWriteTime() (time.Time, error)               { return time.Time{}, nil }
func (m *memFilter) Close() error                                    { return nil }

type byteReaderAtSlice []byte

func (b byteReaderAtSlice) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// trackRecord appends one track's header, sector numbering map and typed
// sector payloads to buf.
func trackRecord(buf *bytes.Buffer, head, spt, sizeCode byte, sectors func(buf *bytes.Buffer)) {
	buf.Write([]byte{0, 0, head, spt, sizeCode})
	idMap := make([]byte, spt)
	for i := range idMap {
		idMap[i] = byte(i + 1)
	}
	buf.Write(idMap)
	sectors(buf)
}

func buildIMD() []byte {
	var buf bytes.Buffer
	buf.WriteString("IMD synthetic test image\r\n")
	buf.WriteByte(0x1A)

	trackRecord(&buf, 0, 1, 2, func(b *bytes.Buffer) {
		b.WriteByte(byte(sectorNormal))
		payload := make([]byte, 512)
		for i := range payload {
			payload[i] = byte(i)
		}
		b.Write(payload)
	})

	trackRecord(&buf, 0, 2, 2, func(b *bytes.Buffer) {
		b.WriteByte(byte(sectorCompressed))
		b.WriteByte(0xAA)
		b.WriteByte(byte(sectorUnavailable))
	})

	return buf.Bytes()
}

func TestProbeAcceptsMarker(t *testing.T) {
	f := &memFilter{data: buildIMD()}
	ok, err := Parser{}.Probe(f)
	if err != nil || !ok {
		t.Fatalf("expected accept, got ok=%v err=%v", ok, err)
	}
}

func TestProbeRejectsMissingMarker(t *testing.T) {
	f := &memFilter{data: []byte("not an imd file")}
	ok, _ := Parser{}.Probe(f)
	if ok {
		t.Fatal("expected reject for missing IMD marker")
	}
}

func TestParseDecodesTwoTracks(t *testing.T) {
	f := &memFilter{data: buildIMD()}
	layout, src, err := Parser{}.Parse(f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracks := layout.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	t0 := tracks[0]
	if t0.StartLBA != 0 || t0.EndLBA != 0 {
		t.Fatalf("track 0: expected lba 0-0, got %d-%d", t0.StartLBA, t0.EndLBA)
	}
	if t0.RawBytesPerSector != 512 {
		t.Fatalf("track 0: expected 512-byte sectors, got %d", t0.RawBytesPerSector)
	}

	t1 := tracks[1]
	if t1.StartLBA != 1 || t1.EndLBA != 2 {
		t.Fatalf("track 1: expected lba 1-2, got %d-%d", t1.StartLBA, t1.EndLBA)
	}

	stream, err := src.Stream(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	normalPayload := make([]byte, 512)
	if _, err := stream.ReadAt(normalPayload, t0.FileOffset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalPayload[1] != 1 {
		t.Fatalf("unexpected normal sector payload: %v", normalPayload[:4])
	}

	compressed := make([]byte, 512)
	if _, err := stream.ReadAt(compressed, t1.FileOffset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, b := range compressed {
		if b != 0xAA {
			t.Fatalf("compressed sector byte %d: got 0x%02X, want 0xAA", i, b)
		}
	}

	unavailable := make([]byte, 512)
	if _, err := stream.ReadAt(unavailable, t1.FileOffset+512); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, b := range unavailable {
		if b != 0 {
			t.Fatalf("unavailable sector byte %d: got 0x%02X, want 0x00", i, b)
		}
	}
}

func TestSectorSizeFor(t *testing.T) {
	cases := map[byte]int{0: 128, 1: 256, 2: 512, 6: 8192}
	for code, want := range cases {
		got, ok := sectorSizeFor(code)
		if !ok || got != want {
			t.Errorf("sectorSizeFor(%d) = (%d, %v), want (%d, true)", code, got, ok, want)
		}
	}
	if _, ok := sectorSizeFor(7); ok {
		t.Error("expected sectorSizeFor(7) to report not ok")
	}
}

func TestParseRejectsUnknownSectorTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("IMD bad tag\r\n")
	buf.WriteByte(0x1A)
	trackRecord(&buf, 0, 1, 0, func(b *bytes.Buffer) {
		b.WriteByte(0xFF) // not a valid sector data type
	})
	f := &memFilter{data: buf.Bytes()}
	if _, _, err := (Parser{}).Parse(f, nil); err == nil {
		t.Fatal("expected error for unknown sector data type")
	}
}
