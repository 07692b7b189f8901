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

package buildlib

import (
	"bytes"
	"os"
	"testing"

	"github.com/uwedeportivo/mrdb/blobreader"
)

func TestDriverRunEndToEnd(t *testing.T) {
	f, err := os.Open("../testdata/sample.dat")
	if err != nil {
		t.Fatalf("failed to open fixture: %v", err)
	}
	defer f.Close()

	drv := NewDriver(DefaultOptions())
	var out bytes.Buffer

	result, err := drv.Run([]Document{{Path: "sample.dat", Reader: f}}, &out)
	if err != nil {
		t.Fatalf("Driver.Run failed: %v", err)
	}
	if result.BytesWritten != int64(out.Len()) {
		t.Fatalf("expected BytesWritten %d to match buffer length %d", result.BytesWritten, out.Len())
	}

	blob, err := blobreader.Open(out.Bytes())
	if err != nil {
		t.Fatalf("blobreader.Open failed: %v", err)
	}

	// pacman and pacmanf share no rom, ghostmaze has its own rom: 3 machines, 3 roms survive.
	if blob.Header.MachinesCount != 3 {
		t.Fatalf("expected 3 surviving machines, got %d", blob.Header.MachinesCount)
	}
	if blob.Header.RomsCount != 3 {
		t.Fatalf("expected 3 surviving roms, got %d", blob.Header.RomsCount)
	}

	var pacmanSha [20]byte
	pacmanSha[0], pacmanSha[1] = 0xe8, 0x7e
	romID, found := blob.FindRom(12, pacmanSha)
	if !found {
		t.Fatalf("expected to find pacman's rom by sha1")
	}
	machineIDs := blob.MachinesForRom(romID)
	if len(machineIDs) != 1 {
		t.Fatalf("expected pacman's rom to be referenced by exactly 1 machine, got %d", len(machineIDs))
	}

	m, err := blob.Machine(machineIDs[0])
	if err != nil {
		t.Fatalf("blob.Machine failed: %v", err)
	}
	if m.Name != "pacman" {
		t.Fatalf("expected machine name pacman, got %s", m.Name)
	}

	pacmanfID, err := findMachineByName(blob, "pacmanf")
	if err != nil || pacmanfID < 0 {
		t.Fatalf("failed to locate pacmanf: %v", err)
	}
	pacmanf, err := blob.Machine(pacmanfID)
	if err != nil {
		t.Fatalf("blob.Machine failed for pacmanf: %v", err)
	}
	if pacmanf.CloneOfID == -1 {
		t.Fatalf("expected pacmanf's cloneof to resolve to pacman's machine id")
	}
	pacmanID, err := findMachineByName(blob, "pacman")
	if err != nil || pacmanID < 0 {
		t.Fatalf("failed to locate pacman: %v", err)
	}
	if pacmanf.CloneOfID != pacmanID {
		t.Fatalf("expected pacmanf.CloneOfID == %d, got %d", pacmanID, pacmanf.CloneOfID)
	}
}

func findMachineByName(blob *blobreader.Blob, name string) (int, error) {
	for id := 0; id < int(blob.Header.MachinesCount); id++ {
		m, err := blob.Machine(id)
		if err != nil {
			return 0, err
		}
		if m.Name == name {
			return id, nil
		}
	}
	return -1, nil
}
