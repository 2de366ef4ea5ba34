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

package board

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
)

// DumpCell is the debug view of a single cell.
type DumpCell struct {
	Mine  bool   `json:"mine"`
	State string `json:"state"`
	Count int    `json:"count"`
}

// DumpGrid is the debug view of the whole grid, mines included.
type DumpGrid struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Cells  [][]DumpCell `json:"cells"`
}

// RawDump walks the grid under the lock and returns a snapshot of the
// full hidden state. Debug tooling only; it exposes the mines.
func (b *Board) RawDump() DumpGrid {
	b.mu.Lock()
	defer b.mu.Unlock()

	dump := DumpGrid{
		Width:  b.width,
		Height: b.height,
		Cells:  make([][]DumpCell, b.height),
	}
	for y := 0; y < b.height; y++ {
		dump.Cells[y] = make([]DumpCell, b.width)
		for x := 0; x < b.width; x++ {
			dump.Cells[y][x] = DumpCell{
				Mine:  b.mines[y][x],
				State: b.states[y][x].String(),
				Count: b.adjacentMines(x, y),
			}
		}
	}
	return dump
}

// Dump returns RawDump as indented JSON.
func (b *Board) Dump() []byte {
	raw, err := json.MarshalIndent(b.RawDump(), "", "    ")
	if err != nil {
		log.Error("Board dump failed", "err", err)
	}
	return raw
}
