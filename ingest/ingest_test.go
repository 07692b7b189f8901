// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

package ingest

import (
	"strings"
	"testing"

	"github.com/uwedeportivo/mrdb/datxml"
)

const sampleDat = `<?xml version="1.0"?>
<datafile>
  <machine name="pacman">
    <description>Pac-Man</description>
    <year>1980</year>
    <manufacturer>Namco</manufacturer>
    <rom name="pacman.6e" size="4096" crc="c1e6ab10" sha1="e87e059c5be45753f7e9f33dff851f16d6751626"/>
    <rom name="tiny.bin" size="100" crc="12345678" sha1="6adfb183a4a2c94a2f92dab5ade762a47889a5a1"/>
  </machine>
  <machine name="pacmanbad">
    <description>Bad ROM only</description>
    <rom name="nosha.bin" size="4096" crc="c1e6ab10" sha1=""/>
  </machine>
  <game name="ghostmaze">
    <description>Ghost Maze</description>
    <rom name="ghost.bin" size="8192" crc="aabbccdd" sha1="da39a3ee5e6b4b0d3255bfef95601890afd80709"/>
  </game>
</datafile>`

func TestStreamFiltersAndEmits(t *testing.T) {
	var got []MachineRecord
	err := Stream(strings.NewReader(sampleDat), "sample.dat", DefaultLimits(), func(rec MachineRecord) error {
		got = append(got, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 surviving machines, got %d", len(got))
	}

	pacman := got[0]
	if pacman.Name != "pacman" {
		t.Fatalf("expected first machine pacman, got %s", pacman.Name)
	}
	if pacman.Year != 1980 {
		t.Fatalf("expected year 1980, got %d", pacman.Year)
	}
	if len(pacman.Roms) != 1 {
		t.Fatalf("expected 1 surviving rom (tiny.bin below band, not power-of-two-filtered), got %d", len(pacman.Roms))
	}
	if pacman.Roms[0].Name != "pacman.6e" {
		t.Fatalf("expected surviving rom pacman.6e, got %s", pacman.Roms[0].Name)
	}
	if pacman.Roms[0].SizePow2 != 12 {
		t.Fatalf("expected size_pow2 12 for 4096 byte rom, got %d", pacman.Roms[0].SizePow2)
	}

	if got[1].Name != "ghostmaze" {
		t.Fatalf("expected second surviving machine ghostmaze, got %s", got[1].Name)
	}
}

func TestStreamDropsMachineWithNoSurvivingRoms(t *testing.T) {
	var got []MachineRecord
	err := Stream(strings.NewReader(sampleDat), "sample.dat", DefaultLimits(), func(rec MachineRecord) error {
		got = append(got, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range got {
		if m.Name == "pacmanbad" {
			t.Fatalf("expected pacmanbad dropped (only rom has empty sha1), but it survived")
		}
	}
}

func TestExtractRomSizeBand(t *testing.T) {
	limits := DefaultLimits()

	_, ok := extractRom(rom("r", "128", "aabbccdd", "6adfb183a4a2c94a2f92dab5ade762a47889a5a1"), limits)
	if ok {
		t.Fatalf("expected rom below MinRomSize to be dropped")
	}

	_, ok = extractRom(rom("r", "300", "aabbccdd", "6adfb183a4a2c94a2f92dab5ade762a47889a5a1"), limits)
	if ok {
		t.Fatalf("expected non-power-of-two size to be dropped")
	}

	r, ok := extractRom(rom("r", "256", "aabbccdd", "6adfb183a4a2c94a2f92dab5ade762a47889a5a1"), limits)
	if !ok {
		t.Fatalf("expected 256 byte rom (band floor, power of two) to survive")
	}
	if r.SizePow2 != 8 {
		t.Fatalf("expected size_pow2 8, got %d", r.SizePow2)
	}
}

func rom(name, size, crc, sha1 string) datxml.Rom {
	return datxml.Rom{Name: name, Size: size, Crc: crc, Sha1: sha1}
}
