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

package util

import (
	"math/rand"
	"testing"
)

func checkUint24LE(t *testing.T, v uint32) {
	buffer := make([]byte, 3)

	PutUint24LE(v, buffer)
	ov := Uint24LE(buffer)

	if v&0xFFFFFF != ov {
		t.Fatalf("expected %d, got %d", v&0xFFFFFF, ov)
	}
}

func TestPutUint24LE(t *testing.T) {
	checkUint24LE(t, 0)
	checkUint24LE(t, 1)
	checkUint24LE(t, 0xFFFFFF)
	checkUint24LE(t, 0x010203)

	for a := 0; a < 1000; a++ {
		checkUint24LE(t, rand.Uint32()&0xFFFFFF)
	}
}

func TestPutUint24LEIsLittleEndian(t *testing.T) {
	buffer := make([]byte, 3)
	PutUint24LE(0x010203, buffer)

	if buffer[0] != 0x03 || buffer[1] != 0x02 || buffer[2] != 0x01 {
		t.Fatalf("expected low byte first, got %v", buffer)
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := []struct {
		v    int64
		want bool
	}{
		{0, false},
		{-4, false},
		{1, true},
		{2, true},
		{3, false},
		{256, true},
		{8 * 1024 * 1024, true},
		{8*1024*1024 - 1, false},
	}

	for _, c := range cases {
		if got := IsPowerOfTwo(c.v); got != c.want {
			t.Fatalf("IsPowerOfTwo(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestLog2(t *testing.T) {
	cases := []struct {
		v    int64
		want int
	}{
		{1, 0},
		{2, 1},
		{256, 8},
		{4096, 12},
		{8 * 1024 * 1024, 23},
	}

	for _, c := range cases {
		if got := Log2(c.v); got != c.want {
			t.Fatalf("Log2(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}
