// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later

package verify

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/discimage/odie/sector"
)

func syntheticMode1Sector() []byte {
	raw := make([]byte, sector.RawBytesCD)
	copy(raw[0:12], []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})
	raw[12], raw[13], raw[14], raw[15] = 0, 2, 0, 1 // MSF header + mode byte
	for i := 16; i < 2064; i++ {
		raw[i] = byte(i * 7)
	}
	EncodeMode1(raw)
	return raw
}

func TestCheckSectorMode1Valid(t *testing.T) {
	raw := syntheticMode1Sector()
	ok, applicable := CheckSector(raw, sector.TypeCdMode1)
	if !applicable {
		t.Fatal("expected Mode1 to be applicable")
	}
	if !ok {
		t.Fatal("expected freshly encoded Mode1 sector to verify")
	}
}

func TestCheckSectorMode1CorruptedByte(t *testing.T) {
	raw := syntheticMode1Sector()
	raw[20] ^= 0xFF
	ok, applicable := CheckSector(raw, sector.TypeCdMode1)
	if !applicable {
		t.Fatal("expected Mode1 to be applicable")
	}
	if ok {
		t.Fatal("expected corrupted sector to fail verification")
	}
}

func TestCheckSectorAudioNotApplicable(t *testing.T) {
	raw := make([]byte, sector.RawBytesCD)
	_, applicable := CheckSector(raw, sector.TypeAudio)
	if applicable {
		t.Fatal("expected Audio to be inapplicable")
	}
}

func TestCheckSectorMode2Form1Valid(t *testing.T) {
	raw := make([]byte, sector.RawBytesCD)
	copy(raw[0:12], []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})
	raw[15] = 2
	for i := 16; i < 2072; i++ {
		raw[i] = byte(i * 3)
	}
	EncodeMode2Form1(raw)
	ok, applicable := CheckSector(raw, sector.TypeCdMode2Form1)
	if !applicable || !ok {
		t.Fatalf("expected valid Mode2Form1 sector: ok=%v applicable=%v", ok, applicable)
	}
}

func TestCheckSectorMode2Form2EDCOnly(t *testing.T) {
	raw := make([]byte, sector.RawBytesCD)
	raw[15] = 2
	for i := 16; i < 2348; i++ {
		raw[i] = byte(i)
	}
	EncodeMode2Form2(raw)
	ok, applicable := CheckSector(raw, sector.TypeCdMode2Form2)
	if !applicable || !ok {
		t.Fatalf("expected valid Mode2Form2 sector: ok=%v applicable=%v", ok, applicable)
	}
	raw[100] ^= 1
	ok, _ = CheckSector(raw, sector.TypeCdMode2Form2)
	if ok {
		t.Fatal("expected corrupted Form2 sector to fail EDC check")
	}
}

func TestVerifyMediaImageMatch(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	sum := sha1.Sum(data)

	streams := []Stream{{Identity: "disc.bin", Reader: bytes.NewReader(data)}}
	digests := []Digests{{Algorithm: AlgorithmSHA1, Values: map[string][]byte{"disc.bin": sum[:]}}}

	result, err := VerifyMediaImage(streams, digests, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !*result {
		t.Fatalf("expected match, got %v", result)
	}
}

func TestVerifyMediaImageMismatch(t *testing.T) {
	streams := []Stream{{Identity: "disc.bin", Reader: bytes.NewReader([]byte("actual data"))}}
	digests := []Digests{{Algorithm: AlgorithmSHA1, Values: map[string][]byte{"disc.bin": make([]byte, 20)}}}

	result, err := VerifyMediaImage(streams, digests, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || *result {
		t.Fatal("expected mismatch")
	}
}

func TestVerifyMediaImageNoDigest(t *testing.T) {
	result, err := VerifyMediaImage(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatal("expected nil result when no digest is available")
	}
}
