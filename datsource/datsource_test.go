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

package datsource

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestSortMameFirstOrdersMamePrefixedFirst(t *testing.T) {
	docs := []Document{
		{Path: "/dats/zzz.dat"},
		{Path: "/dats/MAME 0.240.dat"},
		{Path: "/dats/messful.dat"},
		{Path: "/dats/mame_extra.dat"},
	}

	SortMameFirst(docs)

	if isMameFirst(docs[0].Path) != true || isMameFirst(docs[1].Path) != true {
		t.Fatalf("expected the two mame-prefixed, non-mess documents first, got order %v", docs)
	}
	if docs[0].Path != "/dats/MAME 0.240.dat" {
		t.Fatalf("expected case-insensitive mame prefix match to sort first, got %s", docs[0].Path)
	}
	if isMameFirst(docs[2].Path) || isMameFirst(docs[3].Path) {
		t.Fatalf("expected messful.dat and zzz.dat after the mame group")
	}
}

func TestIsMameFirstExcludesMess(t *testing.T) {
	if isMameFirst("mess.dat") {
		t.Fatalf("expected a mess-named document to not match mame-first")
	}
	if !isMameFirst("MAME.dat") {
		t.Fatalf("expected case-insensitive mame prefix to match")
	}
}

func TestDiscoverFindsDatAndXmlFilesOnly(t *testing.T) {
	dir, err := ioutil.TempDir("", "mrdb-datsource-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	files := []string{"mame.dat", "other.xml", "ignored.txt"}
	for _, f := range files {
		if err := ioutil.WriteFile(filepath.Join(dir, f), []byte("<datafile/>"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	docs, err := Discover([]string{dir})
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 discovered documents (.dat and .xml only), got %d: %v", len(docs), docs)
	}
	if filepath.Base(docs[0].Path) != "mame.dat" {
		t.Fatalf("expected mame.dat to sort first, got %s", docs[0].Path)
	}
}
