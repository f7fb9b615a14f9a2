// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package extract

import (
	"bytes"
	"io"
	"testing"

	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

type memSource struct{ data []byte }

func (s *memSource) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, io.EOF
	}
	return bytes.NewReader(s.data), nil
}

func mode1Track(scrambled bool) image.Track {
	return image.Track{
		Sequence:           1,
		Session:            1,
		Type:               sector.TypeCdMode1,
		RawBytesPerSector:  sector.RawBytesCD,
		UserBytesPerSector: sector.UserBytesMode1,
		StartLBA:           0,
		EndLBA:             1,
		FileOffset:         0,
		StreamID:           0,
		Scrambled:          scrambled,
	}
}

func buildRawSector(userByte byte) []byte {
	raw := make([]byte, sector.RawBytesCD)
	sync := []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	copy(raw, sync)
	raw[15] = 1 // Mode 1
	layout, _ := sector.Geometry(sector.TypeCdMode1, sector.TagUserData)
	for i := 0; i < layout.Size; i++ {
		raw[layout.Offset+i] = userByte
	}
	return raw
}

func TestReadSectorLongDescramblesScrambledTrack(t *testing.T) {
	tr := mode1Track(true)
	plain := buildRawSector(0x42)
	scrambled := append([]byte{}, plain...)
	sector.Descramble(scrambled) // involution: scrambles in place

	data := append(append([]byte{}, scrambled...), scrambled...)
	layout, err := image.NewBuilder(image.FormatCloneCD).AddTrack(tr).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(layout, &memSource{data: data})

	got, err := e.ReadSectorLong(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("expected descrambled sector, got mismatch at first diff")
	}
}

func TestReadSectorUsesDescrambledUserData(t *testing.T) {
	tr := mode1Track(true)
	plain := buildRawSector(0x7A)
	scrambled := append([]byte{}, plain...)
	sector.Descramble(scrambled)

	layout, err := image.NewBuilder(image.FormatCloneCD).AddTrack(tr).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(layout, &memSource{data: scrambled})

	got, err := e.ReadSector(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := sector.Geometry(sector.TypeCdMode1, sector.TagUserData)
	for i, b := range got {
		if b != plain[want.Offset+i] {
			t.Fatalf("user data byte %d: got 0x%02X, want 0x%02X", i, b, plain[want.Offset+i])
		}
	}
}

func TestReadSectorsFallsBackPerSectorWhenScrambled(t *testing.T) {
	tr := mode1Track(true)
	s0 := buildRawSector(0x11)
	s1 := buildRawSector(0x22)
	scrambled0 := append([]byte{}, s0...)
	scrambled1 := append([]byte{}, s1...)
	sector.Descramble(scrambled0)
	sector.Descramble(scrambled1)
	data := append(append([]byte{}, scrambled0...), scrambled1...)

	layout, err := image.NewBuilder(image.FormatCloneCD).AddTrack(tr).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(layout, &memSource{data: data})

	got, err := e.ReadSectors(0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userLayout, _ := sector.Geometry(sector.TypeCdMode1, sector.TagUserData)
	want := append(s0[userLayout.Offset:userLayout.Offset+userLayout.Size],
		s1[userLayout.Offset:userLayout.Offset+userLayout.Size]...)
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected combined sector data")
	}
}

func TestReadSectorLongUnscrambledTrackPassesThrough(t *testing.T) {
	tr := mode1Track(false)
	raw := buildRawSector(0x55)
	layout, err := image.NewBuilder(image.FormatCloneCD).AddTrack(tr).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := New(layout, &memSource{data: raw})

	got, err := e.ReadSectorLong(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatal("expected unscrambled track to be read verbatim")
	}
}
