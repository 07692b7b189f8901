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

// Package relcat is a concrete, LevelDB-backed implementation of the
// out-of-scope "relational catalogue with a small query surface"
// collaborator named in §1. It is a convenience sink populated
// alongside the binary blob; it is never read by any pipeline stage.
// Shape (per-entity-kind DB, gob encoding, a generation counter) is
// grounded on db/level/level.go. The generation counter is kept in
// memory only; no generation file is written.
package relcat

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/uwedeportivo/mrdb/remap"
)

const generationFilename = "mrdb-generation"

// MachineRecord is the gob-encoded value stored per machine id.
type MachineRecord struct {
	Name           string
	CloneOfID      int
	RomOfID        int
	Year           int
	ManufacturerID int
	Description    []byte
}

// Store is a small LevelDB-backed sink: one DB for machines keyed by
// their remapped 24-bit id, one for roms keyed by sha1.
type Store struct {
	path       string
	machinesDB *leveldb.DB
	romsDB     *leveldb.DB
	generation int64
}

// Open opens or creates a Store rooted at path.
func Open(path string) (*Store, error) {
	opts := &opt.Options{Filter: filter.NewBloomFilter(10)}

	machinesDB, err := leveldb.OpenFile(filepath.Join(path, "machines_db"), opts)
	if err != nil {
		return nil, fmt.Errorf("relcat: failed to open machines db at %s: %v", path, err)
	}

	romsDB, err := leveldb.OpenFile(filepath.Join(path, "roms_db"), opts)
	if err != nil {
		machinesDB.Close()
		return nil, fmt.Errorf("relcat: failed to open roms db at %s: %v", path, err)
	}

	return &Store{path: path, machinesDB: machinesDB, romsDB: romsDB}, nil
}

// Close releases both underlying databases.
func (s *Store) Close() error {
	err1 := s.machinesDB.Close()
	err2 := s.romsDB.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Populate writes every remapped machine and ROM from r into the
// store and bumps the in-memory generation counter.
func (s *Store) Populate(r *remap.Result) error {
	batch := new(leveldb.Batch)
	for id, m := range r.Machines {
		rec := MachineRecord{
			Name:           m.Name,
			CloneOfID:      m.CloneOfID,
			RomOfID:        m.RomOfID,
			Year:           m.Year,
			ManufacturerID: m.ManufacturerID,
			Description:    m.Description,
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
			return err
		}
		batch.Put(idKey(id), buf.Bytes())
	}
	if err := s.machinesDB.Write(batch, nil); err != nil {
		return err
	}

	romBatch := new(leveldb.Batch)
	for _, rom := range r.Roms {
		romBatch.Put(rom.Sha1[:], []byte{byte(rom.SizePow2)})
	}
	if err := s.romsDB.Write(romBatch, nil); err != nil {
		return err
	}

	s.generation++
	return nil
}

// Machine looks up a machine by its remapped id.
func (s *Store) Machine(id int) (MachineRecord, bool, error) {
	v, err := s.machinesDB.Get(idKey(id), nil)
	if err == leveldb.ErrNotFound {
		return MachineRecord{}, false, nil
	}
	if err != nil {
		return MachineRecord{}, false, err
	}
	var rec MachineRecord
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
		return MachineRecord{}, false, err
	}
	return rec, true, nil
}

// HasRom reports whether a ROM with this SHA-1 is present.
func (s *Store) HasRom(sha1 [20]byte) (bool, error) {
	_, err := s.romsDB.Get(sha1[:], nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func idKey(id int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(id))
	return buf
}
