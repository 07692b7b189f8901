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

// mrdbc is the compiler's CLI: compile a catalogue of DAT documents
// into a binary blob, inspect a produced blob, or report size-class
// statistics. Structure mirrors cmds/romba/main.go.
package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/codahale/hdrhistogram"
	"github.com/golang/glog"
	"github.com/gonuts/flag"
	"github.com/uwedeportivo/commander"

	"github.com/uwedeportivo/mrdb/blobreader"
	"github.com/uwedeportivo/mrdb/buildlib"
	"github.com/uwedeportivo/mrdb/config"
	"github.com/uwedeportivo/mrdb/datsource"
	"github.com/uwedeportivo/mrdb/relcat"
)

var cmd *commander.Commander
var cfg *config.Config

func init() {
	cfg = config.Default()

	cmd = new(commander.Commander)
	cmd.Name = os.Args[0]
	cmd.Commands = make([]*commander.Command, 3)
	cmd.Flag = flag.NewFlagSet("mrdbc", flag.ExitOnError)

	cmd.Commands[0] = &commander.Command{
		Run:       compile,
		UsageLine: "compile -out <blobfile> <space-separated list of directories of DAT files>",
		Short:     "Runs the full pipeline and writes a binary blob.",
		Long: `
Walks the specified directories for .dat/.xml DAT documents, runs
Ingestor -> Catalogue -> PostProcessor -> Remapper -> PoolBuilder ->
BlobWriter, and writes the resulting binary blob to -out.`,
		Flag: *flag.NewFlagSet("mrdbc-compile", flag.ExitOnError),
	}
	cmd.Commands[0].Flag.String("out", "", "output blob filename")
	cmd.Commands[0].Flag.String("config", "", "path to an INI config file overriding defaults")
	cmd.Commands[0].Flag.String("relcat", "", "optional path for the relational catalogue sink")

	cmd.Commands[1] = &commander.Command{
		Run:       inspect,
		UsageLine: "inspect <blobfile> <size_pow2> <sha1hex>",
		Short:     "Looks up a ROM by size class and SHA-1 in a compiled blob.",
		Long: `
Opens the specified blob and looks up the ROM matching the given
size_pow2 and SHA-1, printing every machine that references it.`,
		Flag: *flag.NewFlagSet("mrdbc-inspect", flag.ExitOnError),
	}

	cmd.Commands[2] = &commander.Command{
		Run:       stats,
		UsageLine: "stats <blobfile>",
		Short:     "Prints a ROM-size-class histogram for a compiled blob.",
		Long: `
Opens the specified blob and prints a cumulative size-class
distribution over its ROM table.`,
		Flag: *flag.NewFlagSet("mrdbc-stats", flag.ExitOnError),
	}
}

func main() {
	err := cmd.Flag.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	args := cmd.Flag.Args()
	err = cmd.Run(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func compile(c *commander.Command, args []string) {
	outpath := c.Flag.Lookup("out").Value.Get().(string)
	if outpath == "" {
		fmt.Fprintf(os.Stderr, "-out flag is required\n")
		os.Exit(1)
	}

	configPath := c.Flag.Lookup("config").Value.Get().(string)
	if configPath != "" {
		loaded, err := config.ReadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	docs, err := datsource.Discover(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to discover dat documents: %v\n", err)
		os.Exit(1)
	}

	drv := buildlib.NewDriver(buildlib.Options{})
	drv.Options.IngestLimits.MinRomSize = cfg.Sizeband.MinRomSize
	drv.Options.IngestLimits.MaxRomSize = cfg.Sizeband.MaxRomSize
	drv.Options.RemapLimits.MinSizePow2 = cfg.Sizeband.MinSizePow2
	drv.Options.RemapLimits.MaxSizePow2 = cfg.Sizeband.MaxSizePow2
	drv.Options.BiosConfig.Threshold = cfg.Bios.Threshold
	drv.Options.BiosConfig.MachineName = cfg.Bios.MachineName
	drv.Options.BiosConfig.Manufacturer = cfg.Bios.Manufacturer
	drv.Options.BiosConfig.Year = cfg.Bios.Year

	var driverDocs []buildlib.Document
	for _, d := range docs {
		f, err := d.Open()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", d.Path, err)
			os.Exit(1)
		}
		defer f.Close()
		driverDocs = append(driverDocs, buildlib.Document{Path: d.Path, Reader: f})
	}

	out, err := os.Create(outpath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", outpath, err)
		os.Exit(1)
	}
	defer out.Close()

	glog.Infof("mrdbc: starting compile of %d documents", len(driverDocs))
	result, err := drv.Run(driverDocs, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compile failed: %v\n", err)
		os.Exit(1)
	}
	glog.Infof("mrdbc: wrote %d bytes to %s", result.BytesWritten, outpath)

	relcatPath := c.Flag.Lookup("relcat").Value.Get().(string)
	if relcatPath == "" {
		relcatPath = cfg.Catalogue.LevelDBPath
	}
	if relcatPath != "" {
		store, err := relcat.Open(relcatPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open relcat at %s: %v\n", relcatPath, err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Populate(result.Remapped); err != nil {
			fmt.Fprintf(os.Stderr, "failed to populate relcat: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stdout, "compiled %d bytes to %s\n", result.BytesWritten, outpath)
}

func inspect(c *commander.Command, args []string) {
	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: inspect <blobfile> <size_pow2> <sha1hex>\n")
		os.Exit(1)
	}

	blob, err := blobreader.OpenFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open blob %s: %v\n", args[0], err)
		os.Exit(1)
	}

	var sizePow2 int
	if _, err := fmt.Sscanf(args[1], "%d", &sizePow2); err != nil {
		fmt.Fprintf(os.Stderr, "bad size_pow2 %q: %v\n", args[1], err)
		os.Exit(1)
	}

	sha1hex := args[2]
	if len(sha1hex) != sha1.Size*2 {
		fmt.Fprintf(os.Stderr, "sha1 must be 40 hex characters\n")
		os.Exit(1)
	}
	var sha1Bytes [20]byte
	if _, err := hex.Decode(sha1Bytes[:], []byte(sha1hex)); err != nil {
		fmt.Fprintf(os.Stderr, "bad sha1 %q: %v\n", sha1hex, err)
		os.Exit(1)
	}

	romID, found := blob.FindRom(sizePow2, sha1Bytes)
	if !found {
		fmt.Fprintf(os.Stdout, "rom not found\n")
		return
	}

	machineIDs := blob.MachinesForRom(romID)
	fmt.Fprintf(os.Stdout, "rom_id=%d referenced by %d machine(s):\n", romID, len(machineIDs))
	for _, mid := range machineIDs {
		m, err := blob.Machine(mid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to decode machine %d: %v\n", mid, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "  machine_id=%d name=%s year=%d\n", mid, m.Name, m.Year)
	}
}

func stats(c *commander.Command, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: stats <blobfile>\n")
		os.Exit(1)
	}

	blob, err := blobreader.OpenFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open blob %s: %v\n", args[0], err)
		os.Exit(1)
	}

	hist := hdrhistogram.New(0, 1<<24, 3)
	for sp := blob.Header.MinSizePow2; sp <= blob.Header.MaxSizePow2; sp++ {
		count := blob.SizeClassCount(sp)
		sizeBytes := int64(1) << uint(sp)
		for i := 0; i < count; i++ {
			hist.RecordValue(sizeBytes)
		}
	}

	fmt.Fprintf(os.Stdout, "roms=%d machines=%d machine_roms=%d manufacturers=%d rom_names=%d\n",
		blob.Header.RomsCount, blob.Header.MachinesCount, blob.Header.MachineRomsCount,
		blob.Header.ManufacturersCount, blob.Header.RomNamesCount)
	fmt.Fprintf(os.Stdout, "rom size cumulative distribution, bytes at p50=%d p90=%d p99=%d\n",
		hist.ValueAtQuantile(50), hist.ValueAtQuantile(90), hist.ValueAtQuantile(99))
}
