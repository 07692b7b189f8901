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

// Package catalog is the normalized, in-memory entity store described
// in spec §3: interned manufacturers and ROM filenames, content-hash
// deduplicated ROMs, and machines with side-tabled cloneof/romof names
// pending resolution. It owns all five entity tables and their
// indices; there is no locking (§5 — the pipeline is single-threaded).
package catalog

import (
	"bytes"
	"sort"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zlib"

	"github.com/uwedeportivo/mrdb/ingest"
)

const (
	noID = -1
)

// Manufacturer is entity #1 of §3.
type Manufacturer struct {
	Name  string
	Alive bool
}

// RomName is entity #2 of §3.
type RomName struct {
	Name  string
	Alive bool
}

// Rom is entity #3 of §3. Never deleted by PostProcessor; only the
// Remapper may drop ROMs, by size-class band restriction.
type Rom struct {
	Sha1            [20]byte
	Crc             []byte
	SizePow2        int
	CanonicalNameID int
}

// Machine is entity #4 of §3. CloneOfID/RomOfID/ManufacturerID are
// noID until resolved; Year is -1 until set. Description is already
// zlib-compressed at insertion time, per §9 "descriptions stay
// compressed across the pipeline".
type Machine struct {
	Name           string
	CloneOfName    string // raw, pending resolution
	RomOfName      string // raw, pending resolution
	CloneOfID      int
	RomOfID        int
	Description    []byte
	Year           int
	ManufacturerID int
	Alive          bool
}

// MachineRom is entity #5 of §3, a many-to-many row with payload.
type MachineRom struct {
	MachineID int
	RomID     int
	NameID    int
}

// Catalogue is the full entity store plus its interning indices.
type Catalogue struct {
	Manufacturers   []Manufacturer
	manufacturerIdx map[string]int
	RomNames        []RomName
	romNameIdx      map[string]int
	Roms            []Rom
	romIdx          map[[20]byte]int
	Machines        []Machine
	machineIdx      map[string]int
	MachineRoms     []MachineRom
}

// New returns an empty Catalogue ready to accept AddMachine calls.
func New() *Catalogue {
	return &Catalogue{
		manufacturerIdx: make(map[string]int),
		romNameIdx:      make(map[string]int),
		romIdx:          make(map[[20]byte]int),
		machineIdx:      make(map[string]int),
	}
}

// InternManufacturer is intern_manufacturer(name) -> id, an idempotent
// upsert keyed by name.
func (c *Catalogue) InternManufacturer(name string) int {
	if id, ok := c.manufacturerIdx[name]; ok {
		return id
	}
	id := len(c.Manufacturers)
	c.Manufacturers = append(c.Manufacturers, Manufacturer{Name: name, Alive: true})
	c.manufacturerIdx[name] = id
	return id
}

// InternRomName is intern_rom_name(name) -> id.
func (c *Catalogue) InternRomName(name string) int {
	if id, ok := c.romNameIdx[name]; ok {
		return id
	}
	id := len(c.RomNames)
	c.RomNames = append(c.RomNames, RomName{Name: name, Alive: true})
	c.romNameIdx[name] = id
	return id
}

// InternRom is intern_rom(sha1, crc, size_pow2, first_name_id) ->
// (id, was_new). On a hit the existing record is returned unchanged;
// the first observed name/CRC wins.
func (c *Catalogue) InternRom(sha1 [20]byte, crc []byte, sizePow2 int, canonicalNameID int) (int, bool) {
	if id, ok := c.romIdx[sha1]; ok {
		return id, false
	}
	id := len(c.Roms)
	c.Roms = append(c.Roms, Rom{Sha1: sha1, Crc: crc, SizePow2: sizePow2, CanonicalNameID: canonicalNameID})
	c.romIdx[sha1] = id
	return id, true
}

// MachineIDByName looks up a machine by its unique name.
func (c *Catalogue) MachineIDByName(name string) (int, bool) {
	id, ok := c.machineIdx[name]
	return id, ok
}

// AddMachine is add_machine(record, rom_refs) -> Option<id>. It
// returns (-1, false) if record.Name is already present (first-ingest
// wins, invariant 5); otherwise it interns every referenced
// manufacturer/rom-name/rom and appends the machine's MachineRom rows.
func (c *Catalogue) AddMachine(rec ingest.MachineRecord) (int, bool) {
	if _, exists := c.machineIdx[rec.Name]; exists {
		glog.V(2).Infof("catalog: skipping duplicate machine %s (first-ingest wins)", rec.Name)
		return noID, false
	}

	manufID := noID
	if rec.Manufacturer != "" {
		manufID = c.InternManufacturer(rec.Manufacturer)
	}

	mid := len(c.Machines)
	c.Machines = append(c.Machines, Machine{
		Name:           rec.Name,
		CloneOfName:    rec.CloneOf,
		RomOfName:      rec.RomOf,
		CloneOfID:      noID,
		RomOfID:        noID,
		Description:    compressDescription(rec.Description),
		Year:           rec.Year,
		ManufacturerID: manufID,
		Alive:          true,
	})
	c.machineIdx[rec.Name] = mid

	for _, rr := range rec.Roms {
		nameID := c.InternRomName(rr.Name)
		romID, _ := c.InternRom(rr.Sha1, rr.Crc, rr.SizePow2, nameID)
		c.MachineRoms = append(c.MachineRoms, MachineRom{MachineID: mid, RomID: romID, NameID: nameID})
	}

	return mid, true
}

// ResolveParents is resolve_parents(): replace each raw cloneof/romof
// name with the corresponding Machine id, or noID if not found
// (invariant 3 — dangling references are nulled, never left dangling,
// since an unresolved lookup simply yields noID).
func (c *Catalogue) ResolveParents() {
	for i := range c.Machines {
		m := &c.Machines[i]
		if m.CloneOfName != "" {
			if id, ok := c.machineIdx[m.CloneOfName]; ok {
				m.CloneOfID = id
			}
		}
		if m.RomOfName != "" {
			if id, ok := c.machineIdx[m.RomOfName]; ok {
				m.RomOfID = id
			}
		}
	}
}

// RomCanonicalNameID returns the canonical RomName id recorded when
// romID was first interned.
func (c *Catalogue) RomCanonicalNameID(romID int) int {
	return c.Roms[romID].CanonicalNameID
}

// MachineRomCountsByRom returns, for every Rom id referenced by at
// least one MachineRom row, the set of distinct machine ids that
// reference it; the size of each set is the count the shared-BIOS
// pass thresholds against.
func (c *Catalogue) MachineRomCountsByRom() map[int]map[int]bool {
	counts := make(map[int]map[int]bool)
	for _, mr := range c.MachineRoms {
		set, ok := counts[mr.RomID]
		if !ok {
			set = make(map[int]bool)
			counts[mr.RomID] = set
		}
		set[mr.MachineID] = true
	}
	return counts
}

// AddSyntheticMachine appends a fresh machine (id larger than any
// existing machine id by construction) with no raw parent names.
func (c *Catalogue) AddSyntheticMachine(name string, year int, manufacturerID int, description []byte) int {
	mid := len(c.Machines)
	c.Machines = append(c.Machines, Machine{
		Name:           name,
		CloneOfID:      noID,
		RomOfID:        noID,
		Description:    description,
		Year:           year,
		ManufacturerID: manufacturerID,
		Alive:          true,
	})
	c.machineIdx[name] = mid
	return mid
}

// AppendMachineRom adds one MachineRom row.
func (c *Catalogue) AppendMachineRom(machineID, romID, nameID int) {
	c.MachineRoms = append(c.MachineRoms, MachineRom{MachineID: machineID, RomID: romID, NameID: nameID})
}

// RemoveMachineRomsForRomsExcept deletes every MachineRom row whose
// RomID is in romSet, except rows belonging to keepMachineID (§4.3
// shared-BIOS step 5).
func (c *Catalogue) RemoveMachineRomsForRomsExcept(romSet map[int]bool, keepMachineID int) {
	kept := c.MachineRoms[:0]
	for _, mr := range c.MachineRoms {
		if romSet[mr.RomID] && mr.MachineID != keepMachineID {
			continue
		}
		kept = append(kept, mr)
	}
	c.MachineRoms = kept
}

// NoID is the sentinel for "not yet resolved" / "absent" references
// held inside the Catalogue, before the Remapper substitutes the
// binary format's 24/16-bit sentinels.
const NoID = noID

func compressDescription(text string) []byte {
	if text == "" {
		return nil
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		glog.Warningf("catalog: failed to compress description: %v", err)
		w.Close()
		return nil
	}
	if err := w.Close(); err != nil {
		glog.Warningf("catalog: failed to close description compressor: %v", err)
		return nil
	}
	return buf.Bytes()
}

// SortedManufacturerNames is a small helper used by tests to assert on
// interning order without exposing map iteration order.
func (c *Catalogue) SortedManufacturerNames() []string {
	names := make([]string, len(c.Manufacturers))
	for i, m := range c.Manufacturers {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}
