// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package toc

import "testing"

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	original := TOC{
		FirstSession: 1,
		LastSession:  1,
		Entries: []Entry{
			{Session: 1, ADR: 1, Control: 4, Point: PointFirstTrack, PMin: 0, PSec: 2, PFrame: 0},
			{Session: 1, ADR: 1, Control: 4, Point: 2, PMin: 0, PSec: 34, PFrame: 12},
			{Session: 1, ADR: 1, Control: 4, Point: PointLeadOut, PMin: 1, PSec: 0, PFrame: 0},
		},
	}

	buf := Marshal(original)
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FirstSession != original.FirstSession || got.LastSession != original.LastSession {
		t.Fatalf("session extremes mismatch: %+v", got)
	}
	if len(got.Entries) != len(original.Entries) {
		t.Fatalf("entry count mismatch: got %d want %d", len(got.Entries), len(original.Entries))
	}
	for i := range original.Entries {
		if got.Entries[i] != original.Entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got.Entries[i], original.Entries[i])
		}
	}
}

func TestWireLayoutSizes(t *testing.T) {
	buf := Marshal(TOC{FirstSession: 1, LastSession: 1, Entries: []Entry{{}}})
	if len(buf) != headerSize+entrySize {
		t.Fatalf("expected %d bytes, got %d", headerSize+entrySize, len(buf))
	}
	dataLength := int(buf[0])<<8 | int(buf[1])
	if dataLength != 2+entrySize {
		t.Fatalf("unexpected data_length: %d", dataLength)
	}
}

func TestTrackStartInterpretation(t *testing.T) {
	e := Entry{ADR: 1, Point: 3, PMin: 0, PSec: 4, PFrame: 20}
	seq, lba, ok := e.IsTrackStart()
	if !ok || seq != 3 {
		t.Fatalf("expected track start seq 3, got seq=%d ok=%v", seq, ok)
	}
	wantLBA := e.PMSF().LBA()
	if lba != wantLBA {
		t.Fatalf("expected lba %d, got %d", wantLBA, lba)
	}
}

func TestDiscTypeInterpretation(t *testing.T) {
	e := Entry{ADR: 4, Point: PointDiscType, PSec: 0x20}
	dt, ok := e.IsDiscType()
	if !ok || dt != 0x20 {
		t.Fatalf("expected disc type 0x20, got %x ok=%v", dt, ok)
	}
}

func TestLeadOutInterpretation(t *testing.T) {
	e := Entry{ADR: 1, Point: PointLeadOut, PMin: 1, PSec: 0, PFrame: 0}
	lba, ok := e.IsLeadOut()
	if !ok || lba != e.PMSF().LBA() {
		t.Fatalf("unexpected lead-out: lba=%d ok=%v", lba, ok)
	}
}

func TestATIPFingerprint(t *testing.T) {
	e := Entry{ADR: 5, Point: PointATIP, PMin: 97, PSec: 12, PFrame: 37}
	psec, decade, ok := e.ATIPFingerprint()
	if !ok || psec != 12 || decade != 30 {
		t.Fatalf("unexpected ATIP fingerprint: psec=%d decade=%d ok=%v", psec, decade, ok)
	}
}

func TestDiscID(t *testing.T) {
	e := Entry{ADR: 6, Min: 0xAB, Sec: 0xCD, Frame: 0xEF}
	id, ok := e.DiscID()
	if !ok || id != 0xABCDEF {
		t.Fatalf("unexpected disc id: %x ok=%v", id, ok)
	}
}

func TestUnmarshalRejectsBadLength(t *testing.T) {
	buf := []byte{0x00, 0x0D, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Unmarshal(buf); err == nil {
		t.Fatal("expected error for mismatched data_length")
	}
}
