// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package image

import (
	"testing"

	"github.com/discimage/odie/sector"
)

func dataTrack(seq, session, start, end int) Track {
	return Track{
		Sequence:           seq,
		Session:            session,
		Type:               sector.TypeCdMode1,
		RawBytesPerSector:  2352,
		UserBytesPerSector: 2048,
		StartLBA:           start,
		EndLBA:             end,
	}
}

func audioTrack(seq, session, start, end int) Track {
	return Track{
		Sequence:           seq,
		Session:            session,
		Type:               sector.TypeAudio,
		RawBytesPerSector:  2352,
		UserBytesPerSector: 2352,
		StartLBA:           start,
		EndLBA:             end,
	}
}

func TestBuilderSingleDataTrackIsCDROM(t *testing.T) {
	layout, err := NewBuilder(FormatCDRWin).
		AddTrack(dataTrack(1, 1, 0, 1999)).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.MediaType() != MediaCDROM {
		t.Fatalf("expected CDROM, got %v", layout.MediaType())
	}
	if len(layout.Sessions()) != 1 {
		t.Fatalf("expected 1 session, got %d", len(layout.Sessions()))
	}
	if got, ok := layout.OffsetMap().StartLBA(1); !ok || got != 0 {
		t.Fatalf("unexpected offset map entry: %d, %v", got, ok)
	}
}

func TestBuilderAllAudioIsCDDA(t *testing.T) {
	layout, err := NewBuilder(FormatCDRWin).
		AddTrack(audioTrack(1, 1, 0, 1999)).
		AddTrack(audioTrack(2, 1, 2000, 3999)).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.MediaType() != MediaCDDA {
		t.Fatalf("expected CDDA, got %v", layout.MediaType())
	}
}

func TestBuilderAudioThenDataIsCDROM(t *testing.T) {
	layout, err := NewBuilder(FormatCDRWin).
		AddTrack(audioTrack(1, 1, 0, 1999)).
		AddTrack(dataTrack(2, 1, 2000, 3999)).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout.MediaType() != MediaCDROM {
		t.Fatalf("expected CDROM, got %v", layout.MediaType())
	}
}

func TestBuilderDuplicateSequenceRejected(t *testing.T) {
	_, err := NewBuilder(FormatCDRWin).
		AddTrack(dataTrack(1, 1, 0, 999)).
		AddTrack(dataTrack(1, 1, 1000, 1999)).
		Build()
	if err == nil {
		t.Fatal("expected duplicate sequence error")
	}
}

func TestBuilderInterleavedSessionsRejected(t *testing.T) {
	_, err := NewBuilder(FormatCDRWin).
		AddTrack(dataTrack(1, 1, 0, 999)).
		AddTrack(dataTrack(2, 2, 1000, 1999)).
		AddTrack(dataTrack(3, 1, 2000, 2999)).
		Build()
	if err == nil {
		t.Fatal("expected non-contiguous session error")
	}
}

func TestBuilderUsedAfterBuildPanics(t *testing.T) {
	b := NewBuilder(FormatCDRWin).AddTrack(dataTrack(1, 1, 0, 999))
	if _, err := b.Build(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from mutating a built Builder")
		}
	}()
	b.AddTrack(dataTrack(2, 1, 1000, 1999))
}

func TestTrackContaining(t *testing.T) {
	layout, err := NewBuilder(FormatCDRWin).
		AddTrack(dataTrack(1, 1, 0, 999)).
		AddTrack(dataTrack(2, 1, 1000, 1999)).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, ok := layout.TrackContaining(1500)
	if !ok || tr.Sequence != 2 {
		t.Fatalf("expected track 2, got %+v, ok=%v", tr, ok)
	}
	if _, ok := layout.TrackContaining(5000); ok {
		t.Fatal("expected out-of-range lba to miss")
	}
}
