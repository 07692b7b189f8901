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

// Package blobreader is a reference decoder for the §6.1 binary
// format, implementing the §6.2 consumer contract: binary search for a
// ROM by (size_pow2, sha1), machine enumeration for a rom_id, and
// metadata lookups. It backs the "inspect" CLI subcommand, the way
// cmds/romba/main.go's lookup/lookupByHash commands back "lookup".
package blobreader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/dgraph-io/ristretto"
	"github.com/klauspost/compress/zlib"
)

const (
	headerSize        = 64
	sizeIndexEntry    = 8
	romRecordSize     = 23
	machineRecordSize = 20
	machineRomSize    = 9
	nameRecordSize    = 4

	null24 = 0xFFFFFF
	null16 = 0xFFFF
)

// Header is the decoded 64-byte blob header.
type Header struct {
	Version             uint16
	MinSizePow2         int
	MaxSizePow2         int
	RomsCount           uint32
	MachinesCount       uint32
	MachineRomsCount    uint32
	ManufacturersCount  uint32
	RomNamesCount       uint32
	SizeIndexOffset     uint32
	RomsOffset          uint32
	MachinesOffset      uint32
	MachineRomsOffset   uint32
	ManufacturersOffset uint32
	RomNamesOffset      uint32
	StringsOffset       uint32
	DescOffset          uint32
}

// Blob is an opened, fully in-memory binary blob, positioned for
// random access. The blob itself is position-independent: only the
// magic, version, and offsets in the header are trusted (§6.2).
type Blob struct {
	data   []byte
	Header Header
	cache  *ristretto.Cache
}

// Open parses a blob's header and validates the magic and version.
func Open(data []byte) (*Blob, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("blobreader: data too short for header")
	}
	if string(data[0:4]) != "MRDB" {
		return nil, fmt.Errorf("blobreader: bad magic %q", data[0:4])
	}
	h := Header{
		Version:             binary.LittleEndian.Uint16(data[4:6]),
		MinSizePow2:         int(data[6]),
		MaxSizePow2:         int(data[7]),
		RomsCount:           binary.LittleEndian.Uint32(data[8:12]),
		MachinesCount:       binary.LittleEndian.Uint32(data[12:16]),
		MachineRomsCount:    binary.LittleEndian.Uint32(data[16:20]),
		ManufacturersCount:  binary.LittleEndian.Uint32(data[20:24]),
		RomNamesCount:       binary.LittleEndian.Uint32(data[24:28]),
		SizeIndexOffset:     binary.LittleEndian.Uint32(data[28:32]),
		RomsOffset:          binary.LittleEndian.Uint32(data[32:36]),
		MachinesOffset:      binary.LittleEndian.Uint32(data[36:40]),
		MachineRomsOffset:   binary.LittleEndian.Uint32(data[40:44]),
		ManufacturersOffset: binary.LittleEndian.Uint32(data[44:48]),
		RomNamesOffset:      binary.LittleEndian.Uint32(data[48:52]),
		StringsOffset:       binary.LittleEndian.Uint32(data[52:56]),
		DescOffset:          binary.LittleEndian.Uint32(data[56:60]),
	}
	if h.Version != 1 {
		return nil, fmt.Errorf("blobreader: unsupported version %d", h.Version)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Blob{data: data, Header: h, cache: cache}, nil
}

// OpenFile reads and opens a blob from a file path.
func OpenFile(path string) (*Blob, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(data)
}

func (b *Blob) sizeIndexEntryAt(classIdx int) (start, end uint32) {
	off := int(b.Header.SizeIndexOffset) + classIdx*sizeIndexEntry
	return binary.LittleEndian.Uint32(b.data[off : off+4]), binary.LittleEndian.Uint32(b.data[off+4 : off+8])
}

// SizeClassCount returns how many ROMs belong to the given size_pow2
// class.
func (b *Blob) SizeClassCount(sizePow2 int) int {
	if sizePow2 < b.Header.MinSizePow2 || sizePow2 > b.Header.MaxSizePow2 {
		return 0
	}
	start, end := b.sizeIndexEntryAt(sizePow2 - b.Header.MinSizePow2)
	return int(end-start) / romRecordSize
}

// FindRom performs the O(log n) lookup of §6.2: binary search within
// the size class's sorted SHA-1 range.
func (b *Blob) FindRom(sizePow2 int, sha1 [20]byte) (romID int, found bool) {
	if sizePow2 < b.Header.MinSizePow2 || sizePow2 > b.Header.MaxSizePow2 {
		return 0, false
	}
	classIdx := sizePow2 - b.Header.MinSizePow2
	start, end := b.sizeIndexEntryAt(classIdx)
	lo := int(start) / romRecordSize
	hi := int(end) / romRecordSize

	idx := sort.Search(hi-lo, func(i int) bool {
		return bytes.Compare(b.romSha1At(lo+i), sha1[:]) >= 0
	})
	if lo+idx >= hi {
		return 0, false
	}
	if !bytes.Equal(b.romSha1At(lo+idx), sha1[:]) {
		return 0, false
	}
	return (sizePow2 << 16) | idx, true
}

func (b *Blob) romRecordOffset(localIndex int) int {
	return int(b.Header.RomsOffset) + localIndex*romRecordSize
}

func (b *Blob) romSha1At(localIndex int) []byte {
	off := b.romRecordOffset(localIndex)
	return b.data[off : off+20]
}

// RomCanonicalNameID returns the canonical RomName id for romID.
func (b *Blob) RomCanonicalNameID(romID int) int {
	sizePow2 := romID >> 16
	localIndex := romID & 0xFFFF
	start, _ := b.sizeIndexEntryAt(sizePow2 - b.Header.MinSizePow2)
	globalIndex := int(start)/romRecordSize + localIndex
	off := b.romRecordOffset(globalIndex)
	return int(uint24LE(b.data[off+20 : off+23]))
}

// MachinesForRom enumerates every machine id referencing romID by
// binary-searching the lower bound of the (rom_id, machine_id) sorted
// MachineRoms table, then linear-scanning until rom_id changes.
func (b *Blob) MachinesForRom(romID int) []int {
	n := int(b.Header.MachineRomsCount)
	lo := sort.Search(n, func(i int) bool {
		return b.machineRomAt(i).RomID >= romID
	})

	var out []int
	for i := lo; i < n; i++ {
		mr := b.machineRomAt(i)
		if mr.RomID != romID {
			break
		}
		out = append(out, mr.MachineID)
	}
	return out
}

// MachineRomRecord is one decoded MachineRoms table row.
type MachineRomRecord struct {
	MachineID int
	RomID     int
	NameID    int
}

func (b *Blob) machineRomAt(index int) MachineRomRecord {
	off := int(b.Header.MachineRomsOffset) + index*machineRomSize
	return MachineRomRecord{
		MachineID: int(uint24LE(b.data[off : off+3])),
		RomID:     int(uint24LE(b.data[off+3 : off+6])),
		NameID:    int(uint24LE(b.data[off+6 : off+9])),
	}
}

// Machine is a decoded Machines table row with resolved strings.
type Machine struct {
	Name           string
	Description    string
	Year           int // -1 if null
	CloneOfID      int // -1 if null
	RomOfID        int
	ManufacturerID int // -1 if null
}

// Machine retrieves and decodes machine id.
func (b *Blob) Machine(id int) (Machine, error) {
	off := int(b.Header.MachinesOffset) + id*machineRecordSize
	rec := b.data[off : off+machineRecordSize]

	nameOffset := binary.LittleEndian.Uint32(rec[0:4])
	descOffset := binary.LittleEndian.Uint32(rec[4:8])
	descLength := binary.LittleEndian.Uint16(rec[8:10])
	cloneOfID := uint24LE(rec[10:13])
	romOfID := uint24LE(rec[13:16])
	year := binary.LittleEndian.Uint16(rec[16:18])
	manufacturerID := binary.LittleEndian.Uint16(rec[18:20])

	desc, err := b.decodeDescription(id, descOffset, descLength)
	if err != nil {
		return Machine{}, err
	}

	m := Machine{
		Name:           b.stringAt(nameOffset),
		Description:    desc,
		Year:           normalizeNull16(year),
		CloneOfID:      normalizeNull24(cloneOfID),
		RomOfID:        normalizeNull24(romOfID),
		ManufacturerID: normalizeNull16(manufacturerID),
	}
	return m, nil
}

func (b *Blob) decodeDescription(machineID int, offset uint32, length uint16) (string, error) {
	if length == 0 {
		return "", nil
	}
	if v, ok := b.cache.Get(machineID); ok {
		return v.(string), nil
	}

	start := int(b.Header.DescOffset) + int(offset)
	compressed := b.data[start : start+int(length)]

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	plain, err := ioutil.ReadAll(zr)
	if err != nil {
		return "", err
	}

	s := string(plain)
	b.cache.Set(machineID, s, int64(len(plain)))
	return s, nil
}

// RomName retrieves a RomName string by id.
func (b *Blob) RomName(id int) string {
	off := int(b.Header.RomNamesOffset) + id*nameRecordSize
	offset := binary.LittleEndian.Uint32(b.data[off : off+4])
	return b.stringAt(offset)
}

// Manufacturer retrieves a Manufacturer string by id.
func (b *Blob) Manufacturer(id int) string {
	off := int(b.Header.ManufacturersOffset) + id*nameRecordSize
	offset := binary.LittleEndian.Uint32(b.data[off : off+4])
	return b.stringAt(offset)
}

func (b *Blob) stringAt(offset uint32) string {
	start := int(b.Header.StringsOffset) + int(offset)
	end := start
	for b.data[end] != 0 {
		end++
	}
	return string(b.data[start:end])
}

func uint24LE(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}

func normalizeNull24(v uint32) int {
	if v == null24 {
		return -1
	}
	return int(v)
}

func normalizeNull16(v uint16) int {
	if v == null16 {
		return -1
	}
	return int(v)
}
