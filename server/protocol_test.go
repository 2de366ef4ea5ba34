// Copyright 2020 The sweepd Authors
// This file is part of the sweepd library.
//
// The sweepd library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The sweepd library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the sweepd library. If not, see <http://www.gnu.org/licenses/>.

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValidLines(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"look", Command{Kind: CmdLook}},
		{"help", Command{Kind: CmdHelp}},
		{"bye", Command{Kind: CmdBye}},
		{"dig 3 4", Command{Kind: CmdDig, X: 3, Y: 4}},
		{"dig 0 0", Command{Kind: CmdDig}},
		{"dig -5 7", Command{Kind: CmdDig, X: -5, Y: 7}},
		{"flag -1 -100", Command{Kind: CmdFlag, X: -1, Y: -100}},
		{"deflag 12 000", Command{Kind: CmdDeflag, X: 12, Y: 0}},
		{"dig 2147483647 0", Command{Kind: CmdDig, X: 2147483647}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.line), "line %q", tt.line)
	}
}

func TestParseInvalidLines(t *testing.T) {
	lines := []string{
		"",
		" ",
		"look ",
		" look",
		"LOOK",
		"bye now",
		"help me",
		"dig",
		"dig 3",
		"dig 3 4 5",
		"dig 3  4",
		"dig\t3\t4",
		"dig 3.5 4",
		"dig +3 4",
		"dig x y",
		"dig - 4",
		"dig 3 -",
		"dig --3 4",
		"poke 3 4",
		"deflag3 4",
	}
	for _, line := range lines {
		assert.Equal(t, Command{Kind: CmdInvalid}, Parse(line), "line %q", line)
	}
}

func TestCmdKindString(t *testing.T) {
	assert.Equal(t, "dig", CmdDig.String())
	assert.Equal(t, "invalid", CmdInvalid.String())
	assert.Equal(t, "deflag", CmdDeflag.String())
}
