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

// Package ingest stream-parses DAT XML documents into filtered
// (Machine, []Rom) emissions, one <machine>/<game> subtree at a time,
// discarding the subtree once its contents have been read out. Memory
// use is bounded by the size of a single element, not the document.
package ingest

import (
	"encoding/hex"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/spacemonkeygo/errors"

	"github.com/uwedeportivo/mrdb/datxml"
	"github.com/uwedeportivo/mrdb/util"
)

// ParseErrorClass mirrors the teacher's spacemonkeygo/errors-based
// XMLParseError: a document-level, build-aborting failure.
var ParseErrorClass = errors.NewClass("ingest parse error")

var errorFilePathKey = errors.GenSym()

// ErrorFilePath recovers the document path a ParseErrorClass error was
// raised for, if any was attached.
func ErrorFilePath(err error) (string, bool) {
	s, ok := errors.GetData(err, errorFilePathKey).(string)
	return s, ok
}

func setErrorFilePath(path string) errors.ErrorOption {
	return errors.SetData(errorFilePathKey, path)
}

// Limits bounds the Ingestor's per-ROM size filter (§4.1 step 1-2).
// This is the byte-range band, distinct from the Remapper's
// size_pow2 band (remap.Limits), which is narrower by default.
type Limits struct {
	MinRomSize int64
	MaxRomSize int64
}

// DefaultLimits returns the spec's default byte band, 256..8MiB.
func DefaultLimits() Limits {
	return Limits{MinRomSize: 256, MaxRomSize: 8 * 1024 * 1024}
}

// RomRecord is one surviving ROM of an emitted machine.
type RomRecord struct {
	Name     string
	Sha1     [20]byte
	Crc      []byte // nil, or exactly 4 bytes
	SizePow2 int
}

// MachineRecord is one emitted machine, with raw (unresolved)
// cloneof/romof names and an unparsed year string already reduced to
// its integer value or null.
type MachineRecord struct {
	Name         string
	CloneOf      string
	RomOf        string
	Description  string
	Year         int // -1 if null
	Manufacturer string
	Roms         []RomRecord
}

// cursor models the 3-state XML streaming state machine from §4.7:
// awaitingMachine -> insideMachine -> emitted -> awaitingMachine.
type cursor int

const (
	awaitingMachine cursor = iota
	insideMachine
	emitted
)

// Stream parses one DAT XML document read from r (docPath only used
// for error reporting) applying §4.1's filtering rules, and invokes
// emit once per surviving machine. emit returning an error aborts the
// stream immediately.
func Stream(r io.Reader, docPath string, limits Limits, emit func(MachineRecord) error) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	state := awaitingMachine

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ParseErrorClass.NewWith(err.Error(), setErrorFilePath(docPath))
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "machine" && se.Name.Local != "game" {
			continue
		}

		state = insideMachine
		var raw datxml.Machine
		if err := dec.DecodeElement(&raw, &se); err != nil {
			return ParseErrorClass.NewWith(err.Error(), setErrorFilePath(docPath))
		}
		state = emitted

		rec, ok := extractMachine(raw, limits)
		if !ok {
			state = awaitingMachine
			continue
		}

		if err := emit(rec); err != nil {
			return err
		}
		state = awaitingMachine
	}

	_ = state
	return nil
}

func extractMachine(raw datxml.Machine, limits Limits) (MachineRecord, bool) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		glog.V(3).Infof("ingest: dropping machine with empty name")
		return MachineRecord{}, false
	}

	rec := MachineRecord{
		Name:         name,
		CloneOf:      strings.TrimSpace(raw.CloneOf),
		RomOf:        strings.TrimSpace(raw.RomOf),
		Description:  raw.Description,
		Manufacturer: strings.TrimSpace(raw.Manufacturer),
		Year:         parseYear(raw.Year),
	}

	for _, rr := range raw.Roms {
		rom, ok := extractRom(rr, limits)
		if !ok {
			continue
		}
		rec.Roms = append(rec.Roms, rom)
	}

	if len(rec.Roms) == 0 {
		glog.V(3).Infof("ingest: dropping machine %s, zero surviving roms", name)
		return MachineRecord{}, false
	}

	return rec, true
}

func parseYear(text string) int {
	text = strings.TrimSpace(text)
	if len(text) < 4 {
		return -1
	}
	y, err := strconv.Atoi(text[:4])
	if err != nil {
		glog.V(4).Infof("ingest: unparseable year %q", text)
		return -1
	}
	return y
}

func extractRom(rr datxml.Rom, limits Limits) (RomRecord, bool) {
	size, err := strconv.ParseInt(strings.TrimSpace(rr.Size), 10, 64)
	if err != nil || size <= 0 {
		glog.V(4).Infof("ingest: dropping rom %s, unparseable size %q", rr.Name, rr.Size)
		return RomRecord{}, false
	}

	if size < limits.MinRomSize || size > limits.MaxRomSize {
		glog.V(4).Infof("ingest: dropping rom %s, size %d outside band", rr.Name, size)
		return RomRecord{}, false
	}

	if !util.IsPowerOfTwo(size) {
		glog.V(4).Infof("ingest: dropping rom %s, size %d not a power of two", rr.Name, size)
		return RomRecord{}, false
	}

	sha1hex := strings.TrimSpace(rr.Sha1)
	if len(sha1hex) != 40 {
		glog.V(4).Infof("ingest: dropping rom %s, missing or malformed sha1", rr.Name)
		return RomRecord{}, false
	}
	var sha1 [20]byte
	if _, err := hex.Decode(sha1[:], []byte(sha1hex)); err != nil {
		glog.V(4).Infof("ingest: dropping rom %s, non-hex sha1 %q", rr.Name, sha1hex)
		return RomRecord{}, false
	}

	var crc []byte
	crcHex := strings.TrimSpace(rr.Crc)
	if crcHex != "" {
		if len(crcHex) == 8 {
			c := make([]byte, 4)
			if _, err := hex.Decode(c, []byte(crcHex)); err == nil {
				crc = c
			}
		}
	}

	return RomRecord{
		Name:     rr.Name,
		Sha1:     sha1,
		Crc:      crc,
		SizePow2: util.Log2(size),
	}, true
}
