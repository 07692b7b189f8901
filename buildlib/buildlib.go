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

// Package buildlib wires the six pipeline stages of §2 into a single
// linear Driver: Ingestor -> Catalogue -> PostProcessor -> Remapper ->
// PoolBuilder -> BlobWriter. It owns the hard-error tier of §7.
package buildlib

import (
	"io"

	"github.com/golang/glog"
	"github.com/spacemonkeygo/errors"

	"github.com/uwedeportivo/mrdb/blobwriter"
	"github.com/uwedeportivo/mrdb/catalog"
	"github.com/uwedeportivo/mrdb/ingest"
	"github.com/uwedeportivo/mrdb/poolbuilder"
	"github.com/uwedeportivo/mrdb/postprocess"
	"github.com/uwedeportivo/mrdb/progress"
	"github.com/uwedeportivo/mrdb/remap"
)

// BuildErrorClass is the build-level hard tier of §7 for
// document-level XML parse failure and post-cleanup invariant
// violations. Size-class overflow is returned as the Remapper's own
// remap.BuildErrorClass error, unchanged. Either way the build aborts
// with a single structured error; no partial blob is written.
var BuildErrorClass = errors.NewClass("build error")

var invariantKey = errors.GenSym()

// ViolatedInvariant recovers the invariant name attached to a
// BuildErrorClass error, if any.
func ViolatedInvariant(err error) (string, bool) {
	s, ok := errors.GetData(err, invariantKey).(string)
	return s, ok
}

func setInvariant(name string) errors.ErrorOption {
	return errors.SetData(invariantKey, name)
}

// Options configures one compile run.
type Options struct {
	IngestLimits ingest.Limits
	RemapLimits  remap.Limits
	BiosConfig   postprocess.BiosConfig
}

// DefaultOptions returns every spec default.
func DefaultOptions() Options {
	return Options{
		IngestLimits: ingest.DefaultLimits(),
		RemapLimits:  remap.DefaultLimits(),
		BiosConfig:   postprocess.DefaultBiosConfig(),
	}
}

// Document is one named XML input.
type Document struct {
	Path   string
	Reader io.Reader
}

// Driver runs the full pipeline over a sequence of documents and
// writes the resulting blob to w.
type Driver struct {
	Options Options
	Tracker *progress.Tracker
}

// NewDriver returns a Driver with the given options and a fresh
// progress tracker.
func NewDriver(opts Options) *Driver {
	return &Driver{Options: opts, Tracker: progress.New()}
}

// Result is everything a caller might want after a successful build:
// the written byte count and the remapped catalogue the blob was
// derived from (useful for populating relcat alongside the blob).
type Result struct {
	BytesWritten int64
	Remapped     *remap.Result
}

// Run executes Ingestor -> Catalogue -> PostProcessor -> Remapper ->
// PoolBuilder -> BlobWriter over docs, writing the final blob to w.
func (d *Driver) Run(docs []Document, w io.Writer) (*Result, error) {
	d.Tracker.EnterStage("ingest")
	c := catalog.New()

	for _, doc := range docs {
		d.Tracker.DocsSeen++
		err := ingest.Stream(doc.Reader, doc.Path, d.Options.IngestLimits, func(rec ingest.MachineRecord) error {
			d.Tracker.MachinesSeen++
			d.Tracker.RomsSeen += len(rec.Roms)

			d.Tracker.EnterStage("catalogue")
			c.AddMachine(rec)
			d.Tracker.EnterStage("ingest")
			return nil
		})
		if err != nil {
			glog.Errorf("buildlib: ingest failed for %s: %v", doc.Path, err)
			return nil, BuildErrorClass.NewWith(err.Error(), setInvariant("xml-parse"))
		}
	}

	c.ResolveParents()

	d.Tracker.EnterStage("postprocess")
	postprocess.SynthesizeSharedBios(c, d.Options.BiosConfig)
	postprocess.CleanOrphans(c)

	if err := checkInvariants(c); err != nil {
		return nil, err
	}

	d.Tracker.EnterStage("remap")
	remapped, err := remap.Run(c, d.Options.RemapLimits)
	if err != nil {
		return nil, err
	}

	d.Tracker.EnterStage("poolbuilder")
	pools := poolbuilder.Build(remapped)

	d.Tracker.EnterStage("blobwriter")
	cw := &countingWriter{w: w}
	if err := blobwriter.Write(cw, remapped, pools); err != nil {
		return nil, err
	}
	d.Tracker.BytesWritten = cw.n

	return &Result{BytesWritten: cw.n, Remapped: remapped}, nil
}

// checkInvariants is the hard-error tier's defensive check for
// "impossible invariants detected after post-processing" (§7): a
// MachineRom referencing a machine that orphan cleanup deleted.
func checkInvariants(c *catalog.Catalogue) error {
	for _, mr := range c.MachineRoms {
		if !c.Machines[mr.MachineID].Alive {
			return BuildErrorClass.NewWith(
				"machine_rom references a deleted machine",
				setInvariant("machine-rom-deleted-machine"),
			)
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
