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

// Package progress tracks pipeline progress across the six stages of
// §2, weighted by their listed Share. Unlike worker/progress.go this
// is driven by direct sequential calls from the pipeline driver (§5:
// no concurrency), so it carries no mutex and no in-flight-file ring.
package progress

import "github.com/dustin/go-humanize"

// Stage names and their weight, in pipeline order, mirroring §2's
// table.
var stageWeights = []struct {
	Name   string
	Share  float64
}{
	{"ingest", 0.15},
	{"catalogue", 0.20},
	{"postprocess", 0.10},
	{"remap", 0.20},
	{"poolbuilder", 0.10},
	{"blobwriter", 0.25},
}

// Tracker accumulates a fraction-complete estimate and per-stage
// counts for CLI reporting.
type Tracker struct {
	stageIndex   int
	DocsSeen     int
	MachinesSeen int
	RomsSeen     int
	BytesWritten int64
}

// New returns a Tracker positioned before the first stage.
func New() *Tracker {
	return &Tracker{}
}

// EnterStage makes the named stage the active one, in any order; a
// name not in the stage table leaves the tracker unchanged. Fraction
// only grows monotonically when stages are entered in pipeline order.
func (t *Tracker) EnterStage(name string) {
	for i, s := range stageWeights {
		if s.Name == name {
			t.stageIndex = i
			return
		}
	}
}

// Fraction returns the estimated overall completion in [0, 1], based
// purely on which stage is active (stages are atomic units of work in
// this sequential pipeline, so intra-stage granularity isn't tracked).
func (t *Tracker) Fraction() float64 {
	var done float64
	for i := 0; i < t.stageIndex; i++ {
		done += stageWeights[i].Share
	}
	return done
}

// Summary renders a human-readable one-line status, in the style of
// worker/worker.go's humanize-formatted summaries.
func (t *Tracker) Summary() string {
	return "docs=" + humanize.Comma(int64(t.DocsSeen)) +
		" machines=" + humanize.Comma(int64(t.MachinesSeen)) +
		" roms=" + humanize.Comma(int64(t.RomsSeen)) +
		" bytes=" + humanize.IBytes(uint64(t.BytesWritten))
}
