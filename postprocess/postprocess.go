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

// Package postprocess runs the two catalogue-cleanup passes of §4.3:
// shared-BIOS extraction, then orphan cleanup. Both operate in-place
// on an owned *catalog.Catalogue after all documents are ingested and
// ResolveParents has run.
package postprocess

import (
	"bytes"
	"sort"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zlib"

	"github.com/uwedeportivo/mrdb/catalog"
)

// BiosConfig configures the shared-BIOS synthesis pass.
type BiosConfig struct {
	Threshold    int
	MachineName  string
	Manufacturer string
	Year         int
}

// DefaultBiosConfig returns the spec's defaults (threshold 4000,
// "neogeo_bios", "SNK", 1990).
func DefaultBiosConfig() BiosConfig {
	return BiosConfig{
		Threshold:    4000,
		MachineName:  "neogeo_bios",
		Manufacturer: "SNK",
		Year:         1990,
	}
}

const sharedBiosDescription = "Shared BIOS ROM set, factored out because it is referenced by an unusually large number of machines."

// SynthesizeSharedBios implements §4.3's shared-BIOS extraction. It is
// idempotent: if a machine named cfg.MachineName already exists, it is
// a no-op.
func SynthesizeSharedBios(c *catalog.Catalogue, cfg BiosConfig) {
	if _, exists := c.MachineIDByName(cfg.MachineName); exists {
		glog.V(2).Infof("postprocess: %s already present, shared-bios pass is a no-op", cfg.MachineName)
		return
	}

	counts := c.MachineRomCountsByRom()

	var shared []int
	for romID, machines := range counts {
		if len(machines) > cfg.Threshold {
			shared = append(shared, romID)
		}
	}
	if len(shared) == 0 {
		return
	}
	sort.Ints(shared)

	manufID := c.InternManufacturer(cfg.Manufacturer)
	biosID := c.AddSyntheticMachine(cfg.MachineName, cfg.Year, manufID, compressDescription(sharedBiosDescription))

	sharedSet := make(map[int]bool, len(shared))
	for _, romID := range shared {
		sharedSet[romID] = true
		nameID := c.RomCanonicalNameID(romID)
		c.AppendMachineRom(biosID, romID, nameID)
	}

	c.RemoveMachineRomsForRomsExcept(sharedSet, biosID)

	glog.Infof("postprocess: synthesized %s covering %d shared roms", cfg.MachineName, len(shared))
}

// CleanOrphans implements §4.3's orphan cleanup, in the specified
// order: dead machines, then dead RomNames, then dead Manufacturers,
// then nulled dangling parent references.
func CleanOrphans(c *catalog.Catalogue) {
	machineRomCount := make([]int, len(c.Machines))
	for _, mr := range c.MachineRoms {
		machineRomCount[mr.MachineID]++
	}
	for i := range c.Machines {
		if machineRomCount[i] == 0 {
			c.Machines[i].Alive = false
		}
	}

	romNameReachable := make([]bool, len(c.RomNames))
	for _, r := range c.Roms {
		romNameReachable[r.CanonicalNameID] = true
	}
	for _, mr := range c.MachineRoms {
		if c.Machines[mr.MachineID].Alive {
			romNameReachable[mr.NameID] = true
		}
	}
	for i := range c.RomNames {
		c.RomNames[i].Alive = romNameReachable[i]
	}

	manufacturerReachable := make([]bool, len(c.Manufacturers))
	for i := range c.Machines {
		if !c.Machines[i].Alive {
			continue
		}
		if mid := c.Machines[i].ManufacturerID; mid != catalog.NoID {
			manufacturerReachable[mid] = true
		}
	}
	for i := range c.Manufacturers {
		c.Manufacturers[i].Alive = manufacturerReachable[i]
	}

	for i := range c.Machines {
		m := &c.Machines[i]
		if m.CloneOfID != catalog.NoID && !c.Machines[m.CloneOfID].Alive {
			m.CloneOfID = catalog.NoID
		}
		if m.RomOfID != catalog.NoID && !c.Machines[m.RomOfID].Alive {
			m.RomOfID = catalog.NoID
		}
	}
}

func compressDescription(text string) []byte {
	if text == "" {
		return nil
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		w.Close()
		return nil
	}
	if err := w.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}
