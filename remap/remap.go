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

// Package remap assigns the dense, compact ids the binary blob uses
// (§4.4): ROM ids pack size_pow2 into the high bits with a
// per-size-class, SHA-1-sorted index; every other entity gets
// sequential ids restricted to what survives reachability from the
// remaining MachineRom rows.
package remap

import (
	"bytes"
	"sort"

	"github.com/spacemonkeygo/errors"

	"github.com/uwedeportivo/mrdb/catalog"
)

// Null24 and Null16 are the sentinels of §4.4. No later stage ever
// invents a different null.
const (
	Null24 = 0xFFFFFF
	Null16 = 0xFFFF
)

// BuildErrorClass is the hard-error tier (§7) for fatal overflow.
var BuildErrorClass = errors.NewClass("remap build error")

var sizeClassKey = errors.GenSym()
var countKey = errors.GenSym()

// OverflowSizeClass recovers the size_pow2 a size-class-overflow
// BuildErrorClass error was raised for.
func OverflowSizeClass(err error) (int, bool) {
	n, ok := errors.GetData(err, sizeClassKey).(int)
	return n, ok
}

// OverflowCount recovers the offending count.
func OverflowCount(err error) (int, bool) {
	n, ok := errors.GetData(err, countKey).(int)
	return n, ok
}

// Limits is the Remapper's size-class band, [MinSizePow2,
// MaxSizePow2] inclusive (defaults 11 and 23). Distinct from, and
// narrower than, ingest.Limits' byte band.
type Limits struct {
	MinSizePow2 int
	MaxSizePow2 int
}

// DefaultLimits returns the spec's default pow2 band, 11..23.
func DefaultLimits() Limits {
	return Limits{MinSizePow2: 11, MaxSizePow2: 23}
}

// SizeClassRange is one SizeIndex[size_pow2] entry: the half-open
// [Start, Start+Count) range of Roms's remapped index space belonging
// to that size class.
type SizeClassRange struct {
	Start int
	Count int
}

// Rom is a remapped ROM record; its position in Roms (combined with
// its SizePow2) is its new id.
type Rom struct {
	Sha1            [20]byte
	Crc             []byte
	SizePow2        int
	CanonicalNameID int // new RomName id, or Null24
}

// Machine is a remapped machine record.
type Machine struct {
	Name           string
	CloneOfID      int // new Machine id, or Null24
	RomOfID        int
	Description    []byte
	Year           int // Null16 if absent
	ManufacturerID int // new Manufacturer id, or Null16
}

// MachineRom is a remapped association row.
type MachineRom struct {
	MachineID int
	RomID     int
	NameID    int
}

// Result is the Remapper's full output: a new catalogue isomorphic to
// the input but with densely-packed ids.
type Result struct {
	Limits        Limits
	SizeIndex     []SizeClassRange // len == MaxSizePow2-MinSizePow2+1
	Roms          []Rom            // ordered by size class, then by id within class
	Machines      []Machine
	Manufacturers []string
	RomNames      []string
	MachineRoms   []MachineRom // sorted by (RomID, MachineID)
}

// RomID packs a ROM's size class and within-class index into the
// 24-bit id of §4.4.
func RomID(sizePow2, index int) int {
	return (sizePow2 << 16) | index
}

// Run executes the Remapper over a cleaned (post-PostProcessor)
// catalogue.
func Run(c *catalog.Catalogue, limits Limits) (*Result, error) {
	// 1. Restrict ROMs to the size-class band and bucket by class.
	byClass := make(map[int][]int) // size_pow2 -> old rom ids
	survivingRom := make([]bool, len(c.Roms))
	for oldID, r := range c.Roms {
		if r.SizePow2 < limits.MinSizePow2 || r.SizePow2 > limits.MaxSizePow2 {
			continue
		}
		byClass[r.SizePow2] = append(byClass[r.SizePow2], oldID)
		survivingRom[oldID] = true
	}

	numClasses := limits.MaxSizePow2 - limits.MinSizePow2 + 1
	sizeIndex := make([]SizeClassRange, numClasses)
	oldToNewRom := make(map[int]int)
	var roms []Rom

	for sp := limits.MinSizePow2; sp <= limits.MaxSizePow2; sp++ {
		ids := byClass[sp]
		sort.Slice(ids, func(i, j int) bool {
			return bytes.Compare(c.Roms[ids[i]].Sha1[:], c.Roms[ids[j]].Sha1[:]) < 0
		})

		if len(ids) > 0xFFFF {
			return nil, BuildErrorClass.NewWith(
				"rom size class exceeds 16-bit index",
				errors.SetData(sizeClassKey, sp), errors.SetData(countKey, len(ids)),
			)
		}

		classIdx := sp - limits.MinSizePow2
		sizeIndex[classIdx] = SizeClassRange{Start: len(roms), Count: len(ids)}

		for idx, oldID := range ids {
			oldToNewRom[oldID] = RomID(sp, idx)
			roms = append(roms, Rom{
				Sha1:     c.Roms[oldID].Sha1,
				Crc:      c.Roms[oldID].Crc,
				SizePow2: sp,
			})
		}
	}

	// 2. Restrict MachineRoms to ROMs that survived the band filter.
	var survivingMachineRoms []catalog.MachineRom
	for _, mr := range c.MachineRoms {
		if survivingRom[mr.RomID] {
			survivingMachineRoms = append(survivingMachineRoms, mr)
		}
	}

	// 3. Surviving machines: referenced by at least one surviving
	// MachineRom, in ascending original-id order.
	machineReferenced := make([]bool, len(c.Machines))
	for _, mr := range survivingMachineRoms {
		machineReferenced[mr.MachineID] = true
	}
	oldToNewMachine := make(map[int]int)
	var machineOrder []int
	for oldID, referenced := range machineReferenced {
		if referenced {
			oldToNewMachine[oldID] = len(machineOrder)
			machineOrder = append(machineOrder, oldID)
		}
	}

	// 4. Surviving manufacturers/romnames: reachable from surviving
	// machines or surviving roms/machineroms.
	manufacturerReachable := make([]bool, len(c.Manufacturers))
	for _, oldID := range machineOrder {
		if mid := c.Machines[oldID].ManufacturerID; mid != catalog.NoID {
			manufacturerReachable[mid] = true
		}
	}
	oldToNewManufacturer := make(map[int]int)
	var manufacturerOrder []int
	for oldID, reachable := range manufacturerReachable {
		if reachable {
			oldToNewManufacturer[oldID] = len(manufacturerOrder)
			manufacturerOrder = append(manufacturerOrder, oldID)
		}
	}

	romNameReachable := make([]bool, len(c.RomNames))
	for oldRomID, isNew := range survivingRom {
		if isNew {
			romNameReachable[c.Roms[oldRomID].CanonicalNameID] = true
		}
	}
	for _, mr := range survivingMachineRoms {
		romNameReachable[mr.NameID] = true
	}
	oldToNewRomName := make(map[int]int)
	var romNameOrder []int
	for oldID, reachable := range romNameReachable {
		if reachable {
			oldToNewRomName[oldID] = len(romNameOrder)
			romNameOrder = append(romNameOrder, oldID)
		}
	}

	// Fill in RomName ids on the Roms table now that the mapping exists.
	romIdx := 0
	for sp := limits.MinSizePow2; sp <= limits.MaxSizePow2; sp++ {
		for _, oldID := range byClass[sp] {
			roms[romIdx].CanonicalNameID = remapOrNull24(oldToNewRomName, c.Roms[oldID].CanonicalNameID)
			romIdx++
		}
	}

	// 5. Remap Machines.
	machines := make([]Machine, len(machineOrder))
	for newID, oldID := range machineOrder {
		old := c.Machines[oldID]
		machines[newID] = Machine{
			Name:           old.Name,
			CloneOfID:      remapMachineOrNull(oldToNewMachine, old.CloneOfID),
			RomOfID:        remapMachineOrNull(oldToNewMachine, old.RomOfID),
			Description:    old.Description,
			Year:           remapYear(old.Year),
			ManufacturerID: remapOrNull16(oldToNewManufacturer, old.ManufacturerID),
		}
	}

	manufacturers := make([]string, len(manufacturerOrder))
	for newID, oldID := range manufacturerOrder {
		manufacturers[newID] = c.Manufacturers[oldID].Name
	}

	romNames := make([]string, len(romNameOrder))
	for newID, oldID := range romNameOrder {
		romNames[newID] = c.RomNames[oldID].Name
	}

	// 6. Remap and sort MachineRoms by (rom_id, machine_id).
	machineRoms := make([]MachineRom, len(survivingMachineRoms))
	for i, mr := range survivingMachineRoms {
		machineRoms[i] = MachineRom{
			MachineID: oldToNewMachine[mr.MachineID],
			RomID:     oldToNewRom[mr.RomID],
			NameID:    oldToNewRomName[mr.NameID],
		}
	}
	sort.Slice(machineRoms, func(i, j int) bool {
		if machineRoms[i].RomID != machineRoms[j].RomID {
			return machineRoms[i].RomID < machineRoms[j].RomID
		}
		return machineRoms[i].MachineID < machineRoms[j].MachineID
	})

	return &Result{
		Limits:        limits,
		SizeIndex:     sizeIndex,
		Roms:          roms,
		Machines:      machines,
		Manufacturers: manufacturers,
		RomNames:      romNames,
		MachineRoms:   machineRoms,
	}, nil
}

func remapMachineOrNull(m map[int]int, oldID int) int {
	if oldID == catalog.NoID {
		return Null24
	}
	if newID, ok := m[oldID]; ok {
		return newID
	}
	return Null24
}

func remapOrNull24(m map[int]int, oldID int) int {
	if oldID == catalog.NoID {
		return Null24
	}
	if newID, ok := m[oldID]; ok {
		return newID
	}
	return Null24
}

func remapOrNull16(m map[int]int, oldID int) int {
	if oldID == catalog.NoID {
		return Null16
	}
	if newID, ok := m[oldID]; ok {
		return newID
	}
	return Null16
}

func remapYear(year int) int {
	if year < 0 || year > 0xFFFF {
		return Null16
	}
	return year
}
