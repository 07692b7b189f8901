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

// Package poolbuilder constructs the two byte pools of §4.5: a sorted,
// NUL-terminated UTF-8 strings pool, and a descriptions pool of
// already-compressed machine descriptions concatenated in ascending
// machine id order. Determinism (§4.5) falls out of sorting the
// strings pool and iterating the descriptions pool in the Remapper's
// already-deterministic machine order.
package poolbuilder

import (
	"sort"

	"github.com/uwedeportivo/mrdb/remap"
)

// Pools holds both byte pools plus the per-machine description
// (offset, length) pairs the Machines table needs.
type Pools struct {
	Strings      []byte
	StringOffset map[string]uint32

	Descriptions []byte
	DescOffset   []uint32 // indexed by new machine id
	DescLength   []uint16 // indexed by new machine id
}

// Build constructs both pools from a Remapper result.
func Build(r *remap.Result) *Pools {
	set := collectStrings(r)

	p := &Pools{
		StringOffset: make(map[string]uint32, len(set)),
		DescOffset:   make([]uint32, len(r.Machines)),
		DescLength:   make([]uint16, len(r.Machines)),
	}

	var pos uint32
	for _, s := range set {
		p.StringOffset[s] = pos
		p.Strings = append(p.Strings, s...)
		p.Strings = append(p.Strings, 0)
		pos += uint32(len(s)) + 1
	}

	var descPos uint32
	for i, m := range r.Machines {
		if len(m.Description) == 0 {
			p.DescOffset[i] = 0
			p.DescLength[i] = 0
			continue
		}
		p.DescOffset[i] = descPos
		p.DescLength[i] = uint16(len(m.Description))
		p.Descriptions = append(p.Descriptions, m.Description...)
		descPos += uint32(len(m.Description))
	}

	return p
}

// collectStrings gathers manufacturer names, ROM filenames and
// machine names (not descriptions), deduplicated and lexicographically
// sorted for deterministic layout.
func collectStrings(r *remap.Result) []string {
	set := make(map[string]bool)
	for _, m := range r.Manufacturers {
		set[m] = true
	}
	for _, n := range r.RomNames {
		set[n] = true
	}
	for _, m := range r.Machines {
		set[m.Name] = true
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
