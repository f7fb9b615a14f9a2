// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package blindwrite

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/sector"
	"github.com/discimage/odie/toc"
)

type memFilter struct{ data []byte }

func (m *memFilter) DataForkStream() (io.ReaderAt, error)           { return byteReaderAt(m.data), nil }
func (m *memFilter) ResourceForkStream() (io.ReaderAt, bool, error) { return nil, false, nil }
func (m *memFilter) Filename() string                               { return "test.b6t" }
func (m *memFilter) BasePath() string                                { return "" }
func (m *memFilter) Length() (int64, error)                          { return int64(len(m.data)), nil }
func (m *memFilter) CreationTime() (time.Time, error)                { return time.Time{}, nil }
func (m *memFilter) LastWriteTime() (time.Time, error)               { return time.Time{}, nil }
func (m *memFilter) Close() error                                    { return nil }

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

type memResolver struct{ files map[string]*memFilter }

func (r *memResolver) Get(name string) (filter.Filter, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("no such sibling: %s", name)
	}
	return f, nil
}

func buildDataSector(mode byte) []byte {
	raw := make([]byte, sector.RawBytesCD)
	sync := []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	copy(raw, sync)
	raw[15] = mode
	return raw
}

func buildTOC(trackLen int) toc.TOC {
	start := sector.LBAToMSF(0 + sector.PregapLBA)
	leadOut := sector.LBAToMSF(trackLen + sector.PregapLBA)
	return toc.TOC{
		FirstSession: 1,
		LastSession:  1,
		Entries: []toc.Entry{
			{Session: 1, ADR: 1, Control: 4, Point: toc.PointFirstTrack,
				PMin: byte(start.Min), PSec: byte(start.Sec), PFrame: byte(start.Frame)},
			{Session: 1, ADR: 1, Control: 0, Point: toc.PointLeadOut,
				PMin: byte(leadOut.Min), PSec: byte(leadOut.Sec), PFrame: byte(leadOut.Frame)},
		},
	}
}

func buildDescriptor(imgName string, t toc.TOC) []byte {
	buf := append([]byte{}, signature...)
	buf = append(buf, supportedVersion)
	buf = append(buf, byte(len(imgName)))
	buf = append(buf, []byte(imgName)...)
	buf = append(buf, toc.Marshal(t)...)
	return buf
}

func buildImageData(trackLen int, mode byte) []byte {
	size := int64(trackLen+sector.PregapLBA+1) * sector.RawBytesCD
	data := make([]byte, size)
	copy(data[int64(sector.PregapLBA)*sector.RawBytesCD:], buildDataSector(mode))
	return data
}

func TestProbeAcceptsSignature(t *testing.T) {
	f := &memFilter{data: buildDescriptor("image.img", buildTOC(10))}
	ok, err := Parser{}.Probe(f)
	if err != nil || !ok {
		t.Fatalf("expected accept, got ok=%v err=%v", ok, err)
	}
}

func TestProbeRejectsBadSignature(t *testing.T) {
	f := &memFilter{data: []byte("not a blindwrite file........")}
	ok, _ := Parser{}.Probe(f)
	if ok {
		t.Fatal("expected reject for non-matching signature")
	}
}

func TestParseBuildsTrackFromTOC(t *testing.T) {
	tocData := buildTOC(10)
	primary := &memFilter{data: buildDescriptor("image.img", tocData)}
	resolver := &memResolver{files: map[string]*memFilter{
		"image.img": {data: buildImageData(10, 1)},
	}}

	layout, src, err := Parser{}.Parse(primary, resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracks := layout.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	tr := tracks[0]
	if tr.Type != sector.TypeCdMode1 {
		t.Fatalf("expected Mode1, got %v", tr.Type)
	}
	if tr.StartLBA != 0 || tr.EndLBA != 9 {
		t.Fatalf("expected lba 0-9, got %d-%d", tr.StartLBA, tr.EndLBA)
	}

	stream, err := src.Stream(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := make([]byte, sector.RawBytesCD)
	if _, err := stream.ReadAt(buf, tr.FileOffset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf[15] != 1 {
		t.Fatalf("unexpected mode byte: %d", buf[15])
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	buf := append([]byte{}, signature...)
	buf = append(buf, 7) // unsupported version
	buf = append(buf, 0)
	primary := &memFilter{data: buf}
	if _, _, err := (Parser{}).Parse(primary, &memResolver{files: map[string]*memFilter{}}); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestParseRejectsEmptyImageName(t *testing.T) {
	buf := append([]byte{}, signature...)
	buf = append(buf, supportedVersion)
	buf = append(buf, 0) // zero-length name
	primary := &memFilter{data: buf}
	if _, _, err := (Parser{}).Parse(primary, &memResolver{files: map[string]*memFilter{}}); err == nil {
		t.Fatal("expected error for empty image filename")
	}
}
