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

// Package config holds the compiler's INI-style configuration,
// mirroring cmds/romba/main.go's Config struct and its gcfg-based
// loading.
package config

import "github.com/scalingdata/gcfg"

// Config is the top-level [general]/[sizeband]/[bios]/[catalogue]
// configuration structure.
type Config struct {
	General struct {
		LogDir      string
		BadInputDir string
		Verbosity   int
	}

	Sizeband struct {
		MinSizePow2 int
		MaxSizePow2 int
		MinRomSize  int64
		MaxRomSize  int64
	}

	Bios struct {
		Threshold    int
		MachineName  string
		Manufacturer string
		Year         int
	}

	Catalogue struct {
		LevelDBPath string
	}
}

// Default returns a Config populated with every spec default: size
// band 11..23, ROM byte band 256..8MiB, BIOS threshold 4000 / SNK /
// neogeo_bios / 1990.
func Default() *Config {
	c := new(Config)
	c.Sizeband.MinSizePow2 = 11
	c.Sizeband.MaxSizePow2 = 23
	c.Sizeband.MinRomSize = 256
	c.Sizeband.MaxRomSize = 8 * 1024 * 1024
	c.Bios.Threshold = 4000
	c.Bios.MachineName = "neogeo_bios"
	c.Bios.Manufacturer = "SNK"
	c.Bios.Year = 1990
	return c
}

// ReadFile overlays an INI file's values onto a Default() config,
// the same ReadFileInto pattern cmds/romba/main.go uses for its own
// Config.
func ReadFile(path string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, err
	}
	return c, nil
}
