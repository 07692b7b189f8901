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

package catalog

import (
	"testing"

	"github.com/uwedeportivo/mrdb/ingest"
)

func machineRecord(name, cloneOf string, sha1 byte) ingest.MachineRecord {
	var sha [20]byte
	sha[0] = sha1
	return ingest.MachineRecord{
		Name:         name,
		CloneOf:      cloneOf,
		Description:  "desc of " + name,
		Year:         1990,
		Manufacturer: "Acme",
		Roms: []ingest.RomRecord{
			{Name: name + ".rom", Sha1: sha, SizePow2: 12},
		},
	}
}

func TestAddMachineInternsAndDedupsByName(t *testing.T) {
	c := New()

	id1, ok := c.AddMachine(machineRecord("foo", "", 1))
	if !ok || id1 != 0 {
		t.Fatalf("expected first add to succeed with id 0, got id=%d ok=%v", id1, ok)
	}

	_, ok = c.AddMachine(machineRecord("foo", "", 2))
	if ok {
		t.Fatalf("expected duplicate machine name to be rejected, first-ingest wins")
	}

	if len(c.Manufacturers) != 1 {
		t.Fatalf("expected 1 interned manufacturer, got %d", len(c.Manufacturers))
	}
	if len(c.Roms) != 1 {
		t.Fatalf("expected 1 interned rom (duplicate add rejected before rom intern), got %d", len(c.Roms))
	}
}

func TestInternRomDedupsBySha1KeepsFirstName(t *testing.T) {
	c := New()
	var sha [20]byte
	sha[0] = 0xAB

	firstName := c.InternRomName("first.rom")
	id1, isNew1 := c.InternRom(sha, []byte{1, 2, 3, 4}, 10, firstName)
	if !isNew1 {
		t.Fatalf("expected first intern to be new")
	}

	secondName := c.InternRomName("second.rom")
	id2, isNew2 := c.InternRom(sha, []byte{5, 6, 7, 8}, 10, secondName)
	if isNew2 {
		t.Fatalf("expected second intern with same sha1 to hit existing entry")
	}
	if id1 != id2 {
		t.Fatalf("expected same rom id on collision, got %d and %d", id1, id2)
	}
	if c.RomCanonicalNameID(id1) != firstName {
		t.Fatalf("expected first-observed name to win on collision")
	}
}

func TestResolveParentsNullsDanglingReferences(t *testing.T) {
	c := New()
	c.AddMachine(machineRecord("parent", "", 1))
	c.AddMachine(machineRecord("child", "parent", 2))
	c.AddMachine(machineRecord("orphan", "doesnotexist", 3))

	c.ResolveParents()

	childID, _ := c.MachineIDByName("child")
	parentID, _ := c.MachineIDByName("parent")
	if c.Machines[childID].CloneOfID != parentID {
		t.Fatalf("expected child's cloneof to resolve to parent id %d, got %d", parentID, c.Machines[childID].CloneOfID)
	}

	orphanID, _ := c.MachineIDByName("orphan")
	if c.Machines[orphanID].CloneOfID != NoID {
		t.Fatalf("expected dangling cloneof to stay NoID, got %d", c.Machines[orphanID].CloneOfID)
	}
}

func TestMachineRomCountsByRom(t *testing.T) {
	c := New()
	var sha [20]byte
	sha[0] = 0x01
	nameID := c.InternRomName("shared.rom")
	romID, _ := c.InternRom(sha, nil, 12, nameID)

	m1 := c.AddSyntheticMachine("m1", 2000, NoID, nil)
	m2 := c.AddSyntheticMachine("m2", 2000, NoID, nil)
	c.AppendMachineRom(m1, romID, nameID)
	c.AppendMachineRom(m2, romID, nameID)

	counts := c.MachineRomCountsByRom()
	if len(counts[romID]) != 2 {
		t.Fatalf("expected rom referenced by 2 machines, got %d", len(counts[romID]))
	}
}

func TestRemoveMachineRomsForRomsExceptKeepsExcepted(t *testing.T) {
	c := New()
	var sha [20]byte
	sha[0] = 0x02
	nameID := c.InternRomName("bios.rom")
	romID, _ := c.InternRom(sha, nil, 12, nameID)

	m1 := c.AddSyntheticMachine("m1", 2000, NoID, nil)
	biosMachine := c.AddSyntheticMachine("bios", 1990, NoID, nil)
	c.AppendMachineRom(m1, romID, nameID)
	c.AppendMachineRom(biosMachine, romID, nameID)

	c.RemoveMachineRomsForRomsExcept(map[int]bool{romID: true}, biosMachine)

	if len(c.MachineRoms) != 1 {
		t.Fatalf("expected only the excepted machine's row to survive, got %d rows", len(c.MachineRoms))
	}
	if c.MachineRoms[0].MachineID != biosMachine {
		t.Fatalf("expected surviving row to belong to the excepted machine")
	}
}
