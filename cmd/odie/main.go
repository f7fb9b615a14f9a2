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

// Command odie decodes, verifies and dumps optical-disc images: the
// decode/verify/dump subcommands of the Optical Disc Image Engine.
// Argument parsing uses the flag package with no config file; diagnostics go
// to stderr via fmt.Fprintf.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/discimage/odie"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: a subcommand is required\n")
		usage()
		os.Exit(int(odie.MissingArgument))
	}

	var code odie.ErrorNumber
	switch args[0] {
	case "decode":
		code = runDecode(args[1:])
	case "verify":
		code = runVerify(args[1:])
	case "dump":
		code = runDump(args[1:])
	case "help", "-h", "--help":
		usage()
		code = odie.HelpRequested
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand %q\n", args[0])
		usage()
		code = odie.MissingArgument
	}
	os.Exit(int(code))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <decode|verify|dump> <image-path> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  decode <path>                  print tracks, sessions and media type\n")
	fmt.Fprintf(os.Stderr, "  verify <path>                  check every sector's EDC/ECC\n")
	fmt.Fprintf(os.Stderr, "  dump <path> <lba> <count> <out> extract count sectors starting at lba to out\n")
}

func openOrExit(path string) *odie.Image {
	img, err := odie.OpenAnyPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
		odie.Exit(err)
	}
	return img
}

func runDecode(args []string) odie.ErrorNumber {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: decode requires an image path\n")
		return odie.MissingArgument
	}
	img := openOrExit(args[0])
	defer func() { _ = img.Close() }()

	mediaType, format := img.Info()
	fmt.Printf("Format: %s\n", format)
	fmt.Printf("Media type: %s\n", mediaType)

	fmt.Printf("\nSessions:\n")
	for _, s := range img.Sessions() {
		fmt.Printf("  %d: tracks %d-%d, sectors %d-%d\n",
			s.Sequence, s.StartTrack, s.EndTrack, s.StartSector, s.EndSector)
	}

	fmt.Printf("\nTracks:\n")
	for _, t := range img.Tracks() {
		fmt.Printf("  %2d (session %d): %-16s LBA %8d-%8d (%d sectors), %d/%d bytes/sector\n",
			t.Sequence, t.Session, t.Type, t.StartLBA, t.EndLBA, t.Length(),
			t.UserBytesPerSector, t.RawBytesPerSector)
	}
	return odie.NoError
}

func runVerify(args []string) odie.ErrorNumber {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: verify requires an image path\n")
		return odie.MissingArgument
	}
	img := openOrExit(args[0])
	defer func() { _ = img.Close() }()

	var failing, unknown []int
	var anyFailed, anyChecked bool
	for _, t := range img.Tracks() {
		for lba := t.StartLBA; lba <= t.EndLBA; lba++ {
			result, err := img.VerifySector(lba)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error verifying sector %d: %v\n", lba, err)
				return odie.FormatNotFound
			}
			if result == nil {
				unknown = append(unknown, lba)
				continue
			}
			anyChecked = true
			if !*result {
				anyFailed = true
				failing = append(failing, lba)
			}
		}
	}

	fmt.Printf("Checked sectors: %d bad, %d unknown\n", len(failing), len(unknown))
	if len(failing) > 0 {
		fmt.Printf("First bad sector: %d\n", failing[0])
	}

	var sectorsOK *bool
	if anyChecked {
		ok := !anyFailed
		sectorsOK = &ok
	}
	return odie.ClassifyVerifyResult(nil, sectorsOK)
}

func runDump(args []string) odie.ErrorNumber {
	if len(args) < 4 {
		fmt.Fprintf(os.Stderr, "Error: dump requires <path> <lba> <count> <out>\n")
		return odie.MissingArgument
	}
	img := openOrExit(args[0])
	defer func() { _ = img.Close() }()

	lba, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid lba %q: %v\n", args[1], err)
		return odie.UnexpectedArgumentCount
	}
	count, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid count %q: %v\n", args[2], err)
		return odie.UnexpectedArgumentCount
	}

	out, err := os.Create(args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", args[3], err)
		return odie.CannotOpenFile
	}
	defer func() { _ = out.Close() }()

	var t image.Track
	var found bool
	for _, tr := range img.Tracks() {
		if tr.Contains(lba) {
			t = tr
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: lba %d is not within any track\n", lba)
		return odie.FormatNotFound
	}

	for i := 0; i < count; i++ {
		var buf []byte
		var err error
		if t.Type == sector.TypeAudio || t.RawBytesPerSector == t.UserBytesPerSector {
			buf, err = img.ReadSector(lba + i)
		} else {
			buf, err = img.ReadSectorLong(lba + i)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading sector %d: %v\n", lba+i, err)
			return odie.FormatNotFound
		}
		if _, err := out.Write(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", args[3], err)
			return odie.CannotOpenFile
		}
	}
	fmt.Printf("Wrote %d sectors from lba %d to %s\n", count, lba, args[3])
	return odie.NoError
}

