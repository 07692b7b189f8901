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

// Package datxml holds the raw XML element shapes the Ingestor decodes
// a single <machine>/<game> subtree into, before any filtering or
// interning happens. Fields are kept as strings even where the final
// model wants numbers, so that a single malformed attribute never
// aborts decoding of its sibling fields.
package datxml

import "encoding/xml"

// Rom is one <rom> child of a <machine>/<game> element.
type Rom struct {
	Name string `xml:"name,attr"`
	Size string `xml:"size,attr"`
	Crc  string `xml:"crc,attr"`
	Sha1 string `xml:"sha1,attr"`
}

// BiosSet and Disk mirror fields the wider
// MAME XML model carries (see other_examples' retrog dat model) that
// this catalogue's Machine/Rom shape does not declare. They are
// decoded so the subtree parses cleanly under non-strict mode, then
// discarded; nothing downstream reads them.
type BiosSet struct {
	Name string `xml:"name,attr"`
}

type Disk struct {
	Name string `xml:"name,attr"`
	Sha1 string `xml:"sha1,attr"`
}

// Machine is either a <machine> or <game> element. Both tag names are
// decoded into this same struct.
type Machine struct {
	XMLName      xml.Name
	Name         string    `xml:"name,attr"`
	CloneOf      string    `xml:"cloneof,attr"`
	RomOf        string    `xml:"romof,attr"`
	IsBios       string    `xml:"isbios,attr"`
	IsDevice     string    `xml:"isdevice,attr"`
	Description  string    `xml:"description"`
	Year         string    `xml:"year"`
	Manufacturer string    `xml:"manufacturer"`
	Roms         []Rom     `xml:"rom"`
	BiosSets     []BiosSet `xml:"biosset"`
	Disks        []Disk    `xml:"disk"`
}
