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

// Package datsource is the out-of-scope DatSource collaborator of §1,
// concretized as a filesystem walker over one or more root
// directories. The core Ingestor only ever consumes an io.Reader; this
// package is scaffolding that decides which files to read and in what
// order.
package datsource

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// Document names a single DAT/XML file discovered under a root.
type Document struct {
	Path string
}

// Open opens the underlying file for streaming by ingest.Stream.
func (d Document) Open() (*os.File, error) {
	return os.Open(d.Path)
}

// Discover walks each root with godirwalk collecting *.dat/*.xml
// files, then orders them per §4.2: any path whose basename starts
// with "mame" (case-insensitive) and does not contain "mess" sorts
// before everything else. Ties are broken by path for determinism.
func Discover(roots []string) ([]Document, error) {
	var docs []Document

	for _, root := range roots {
		err := godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					return nil
				}
				ext := strings.ToLower(filepath.Ext(path))
				if ext != ".dat" && ext != ".xml" {
					return nil
				}
				docs = append(docs, Document{Path: path})
				return nil
			},
			Unsorted: true,
		})
		if err != nil {
			return nil, err
		}
	}

	SortMameFirst(docs)
	return docs, nil
}

// SortMameFirst applies the §4.2 ordering rule in place.
func SortMameFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		pi, pj := isMameFirst(docs[i].Path), isMameFirst(docs[j].Path)
		if pi != pj {
			return pi
		}
		return docs[i].Path < docs[j].Path
	})
}

func isMameFirst(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasPrefix(base, "mame") && !strings.Contains(base, "mess")
}
