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

// Package blobwriter emits the fixed-layout binary format of §6.1 in
// one pass, without seeking: section sizes are all known up front from
// the Remapper result and PoolBuilder pools, so offsets are computed
// before a single byte is written.
package blobwriter

import (
	"encoding/binary"
	"io"

	"github.com/uwedeportivo/mrdb/poolbuilder"
	"github.com/uwedeportivo/mrdb/remap"
	"github.com/uwedeportivo/mrdb/util"
)

const (
	headerSize        = 64
	sizeIndexEntry    = 8
	romRecordSize     = 23
	machineRecordSize = 20
	machineRomSize    = 9
	nameRecordSize    = 4

	magic   = "MRDB"
	version = uint16(1)
)

// Write emits the blob described by r and p to w.
func Write(w io.Writer, r *remap.Result, p *poolbuilder.Pools) error {
	numClasses := r.Limits.MaxSizePow2 - r.Limits.MinSizePow2 + 1

	sizeIndexOffset := uint32(headerSize)
	romsOffset := sizeIndexOffset + uint32(numClasses*sizeIndexEntry)
	machinesOffset := romsOffset + uint32(len(r.Roms)*romRecordSize)
	machineRomsOffset := machinesOffset + uint32(len(r.Machines)*machineRecordSize)
	manufacturersOffset := machineRomsOffset + uint32(len(r.MachineRoms)*machineRomSize)
	romNamesOffset := manufacturersOffset + uint32(len(r.Manufacturers)*nameRecordSize)
	stringsOffset := romNamesOffset + uint32(len(r.RomNames)*nameRecordSize)
	descOffset := stringsOffset + uint32(len(p.Strings))

	if err := writeHeader(w, r, sizeIndexOffset, romsOffset, machinesOffset,
		machineRomsOffset, manufacturersOffset, romNamesOffset, stringsOffset, descOffset); err != nil {
		return err
	}
	if err := writeSizeIndex(w, r); err != nil {
		return err
	}
	if err := writeRoms(w, r, p); err != nil {
		return err
	}
	if err := writeMachines(w, r, p); err != nil {
		return err
	}
	if err := writeMachineRoms(w, r); err != nil {
		return err
	}
	if err := writeNameTable(w, r.Manufacturers, p); err != nil {
		return err
	}
	if err := writeNameTable(w, r.RomNames, p); err != nil {
		return err
	}
	if _, err := w.Write(p.Strings); err != nil {
		return err
	}
	if _, err := w.Write(p.Descriptions); err != nil {
		return err
	}
	return nil
}

func writeHeader(w io.Writer, r *remap.Result, sizeIndexOffset, romsOffset, machinesOffset,
	machineRomsOffset, manufacturersOffset, romNamesOffset, stringsOffset, descOffset uint32) error {

	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], version)
	buf[6] = byte(r.Limits.MinSizePow2)
	buf[7] = byte(r.Limits.MaxSizePow2)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(r.Roms)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(r.Machines)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(r.MachineRoms)))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(r.Manufacturers)))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(r.RomNames)))
	binary.LittleEndian.PutUint32(buf[28:32], sizeIndexOffset)
	binary.LittleEndian.PutUint32(buf[32:36], romsOffset)
	binary.LittleEndian.PutUint32(buf[36:40], machinesOffset)
	binary.LittleEndian.PutUint32(buf[40:44], machineRomsOffset)
	binary.LittleEndian.PutUint32(buf[44:48], manufacturersOffset)
	binary.LittleEndian.PutUint32(buf[48:52], romNamesOffset)
	binary.LittleEndian.PutUint32(buf[52:56], stringsOffset)
	binary.LittleEndian.PutUint32(buf[56:60], descOffset)
	// buf[60:64] stays zero padding.
	_, err := w.Write(buf)
	return err
}

func writeSizeIndex(w io.Writer, r *remap.Result) error {
	buf := make([]byte, len(r.SizeIndex)*sizeIndexEntry)
	for i, sc := range r.SizeIndex {
		start := uint32(sc.Start * romRecordSize)
		end := uint32((sc.Start + sc.Count) * romRecordSize)
		binary.LittleEndian.PutUint32(buf[i*sizeIndexEntry:], start)
		binary.LittleEndian.PutUint32(buf[i*sizeIndexEntry+4:], end)
	}
	_, err := w.Write(buf)
	return err
}

func writeRoms(w io.Writer, r *remap.Result, p *poolbuilder.Pools) error {
	buf := make([]byte, len(r.Roms)*romRecordSize)
	for i, rom := range r.Roms {
		off := i * romRecordSize
		copy(buf[off:off+20], rom.Sha1[:])
		util.PutUint24LE(uint32(rom.CanonicalNameID), buf[off+20:off+23])
	}
	_, err := w.Write(buf)
	return err
}

func writeMachines(w io.Writer, r *remap.Result, p *poolbuilder.Pools) error {
	buf := make([]byte, len(r.Machines)*machineRecordSize)
	for i, m := range r.Machines {
		off := i * machineRecordSize
		binary.LittleEndian.PutUint32(buf[off:off+4], p.StringOffset[m.Name])
		binary.LittleEndian.PutUint32(buf[off+4:off+8], p.DescOffset[i])
		binary.LittleEndian.PutUint16(buf[off+8:off+10], p.DescLength[i])
		util.PutUint24LE(uint32(m.CloneOfID), buf[off+10:off+13])
		util.PutUint24LE(uint32(m.RomOfID), buf[off+13:off+16])
		binary.LittleEndian.PutUint16(buf[off+16:off+18], uint16(m.Year))
		binary.LittleEndian.PutUint16(buf[off+18:off+20], uint16(m.ManufacturerID))
	}
	_, err := w.Write(buf)
	return err
}

func writeMachineRoms(w io.Writer, r *remap.Result) error {
	buf := make([]byte, len(r.MachineRoms)*machineRomSize)
	for i, mr := range r.MachineRoms {
		off := i * machineRomSize
		util.PutUint24LE(uint32(mr.MachineID), buf[off:off+3])
		util.PutUint24LE(uint32(mr.RomID), buf[off+3:off+6])
		util.PutUint24LE(uint32(mr.NameID), buf[off+6:off+9])
	}
	_, err := w.Write(buf)
	return err
}

func writeNameTable(w io.Writer, names []string, p *poolbuilder.Pools) error {
	buf := make([]byte, len(names)*nameRecordSize)
	for i, n := range names {
		binary.LittleEndian.PutUint32(buf[i*nameRecordSize:], p.StringOffset[n])
	}
	_, err := w.Write(buf)
	return err
}
