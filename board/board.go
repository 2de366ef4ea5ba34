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

// Package board implements the shared minesweeper grid. A Board is a
// monitor: all operations are mutually exclusive, and the mutating
// operations render the resulting grid under the same lock so every
// caller observes a consistent snapshot.
package board

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"
)

var (
	ErrNoRows     = errors.New("grid has no rows")
	ErrNoColumns  = errors.New("grid has no columns")
	ErrRaggedGrid = errors.New("grid rows have unequal length")
	ErrBadSize    = errors.New("board dimensions must be positive")
	ErrBadChance  = errors.New("mine probability outside [0, 1]")
)

var (
	// Metrics for the board
	detonationCounter = metrics.NewRegisteredCounter("board/detonations", nil)
	revealCounter     = metrics.NewRegisteredCounter("board/reveals", nil)
)

// renderCacheLimit bounds the cached renders. Interactive traffic only
// ever asks for the latest revision, so a handful is plenty.
const renderCacheLimit = 4

type cellState byte

const (
	stateUntouched cellState = iota
	stateFlagged
	stateDug
)

func (s cellState) String() string {
	switch s {
	case stateUntouched:
		return "untouched"
	case stateFlagged:
		return "flagged"
	case stateDug:
		return "dug"
	}
	return fmt.Sprintf("unknown(%d)", byte(s))
}

// Board is a rectangular minesweeper grid shared by all connections.
// Coordinates are (x, y) with (0, 0) the top left cell; x runs along
// the columns, y down the rows.
type Board struct {
	mu     sync.Mutex
	width  int
	height int
	mines  [][]bool      // mines[y][x]
	states [][]cellState // states[y][x]

	rev     uint64     // bumped on every state change, keys the render cache
	renders *lru.Cache // rev -> []string
}

// New builds a board from an explicit mine layout. All cells start
// untouched. The layout must be rectangular and non-empty; it is
// copied, the caller keeps ownership of its slice.
func New(mines [][]bool) (*Board, error) {
	if len(mines) == 0 {
		return nil, ErrNoRows
	}
	width := len(mines[0])
	if width == 0 {
		return nil, ErrNoColumns
	}
	b := &Board{
		width:  width,
		height: len(mines),
		mines:  make([][]bool, len(mines)),
		states: make([][]cellState, len(mines)),
	}
	for y, row := range mines {
		if len(row) != width {
			return nil, ErrRaggedGrid
		}
		b.mines[y] = make([]bool, width)
		copy(b.mines[y], row)
		b.states[y] = make([]cellState, width)
	}
	b.renders, _ = lru.New(renderCacheLimit)
	b.checkRep()
	return b, nil
}

// Width returns the number of columns.
func (b *Board) Width() int { return b.width }

// Height returns the number of rows.
func (b *Board) Height() int { return b.height }

// Dig reveals the cell at (x, y) and reports whether a mine was
// detonated. Out-of-bounds coordinates and cells that are not
// untouched leave the board unchanged. A detonated mine is removed
// before neighbour counts are taken, so the flood fill and all later
// renders already see the post-detonation grid. The returned rows are
// the grid rendered under the same lock acquisition.
func (b *Board) Dig(x, y int) (boom bool, rows []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inBounds(x, y) || b.states[y][x] != stateUntouched {
		return false, b.render()
	}
	boom = b.mines[y][x]
	b.mines[y][x] = false
	b.states[y][x] = stateDug
	revealCounter.Inc(1)
	if b.adjacentMines(x, y) == 0 {
		b.propagate(x, y)
	}
	b.rev++
	b.checkRep()
	if boom {
		detonationCounter.Inc(1)
	}
	return boom, b.render()
}

// Flag marks an untouched in-bounds cell. Anything else is a no-op.
func (b *Board) Flag(x, y int) (rows []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inBounds(x, y) && b.states[y][x] == stateUntouched {
		b.states[y][x] = stateFlagged
		b.rev++
		b.checkRep()
	}
	return b.render()
}

// Deflag returns a flagged in-bounds cell to untouched. Anything else
// is a no-op.
func (b *Board) Deflag(x, y int) (rows []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inBounds(x, y) && b.states[y][x] == stateFlagged {
		b.states[y][x] = stateUntouched
		b.rev++
		b.checkRep()
	}
	return b.render()
}

// Render returns the grid as one string per row, top to bottom. Cells
// are separated by single spaces with no trailing space, so each row
// is exactly 2*Width-1 characters: "-" untouched, "F" flagged, " " dug
// with no adjacent mines, "1".."8" dug next to that many mines.
func (b *Board) Render() (rows []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render()
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// adjacentMines counts the mines on the up to eight in-bounds
// neighbours of (x, y).
func (b *Board) adjacentMines(x, y int) int {
	count := 0
	for j := y - 1; j <= y+1; j++ {
		for i := x - 1; i <= x+1; i++ {
			if i == x && j == y {
				continue
			}
			if b.inBounds(i, j) && b.mines[j][i] {
				count++
			}
		}
	}
	return count
}

// propagate reveals the untouched neighbours of every reachable dug
// cell whose adjacent count is zero, starting from (x, y). An explicit
// queue bounds memory to the reachable region; a large detonation must
// not be able to blow the goroutine stack.
func (b *Board) propagate(x, y int) {
	queue := [][2]int{{x, y}}
	for len(queue) > 0 {
		cx, cy := queue[0][0], queue[0][1]
		queue = queue[1:]
		if b.adjacentMines(cx, cy) != 0 {
			continue
		}
		for j := cy - 1; j <= cy+1; j++ {
			for i := cx - 1; i <= cx+1; i++ {
				if (i == cx && j == cy) || !b.inBounds(i, j) {
					continue
				}
				if b.states[j][i] != stateUntouched {
					continue
				}
				b.states[j][i] = stateDug
				revealCounter.Inc(1)
				queue = append(queue, [2]int{i, j})
			}
		}
	}
}

// render is the lock-held implementation of Render. Renders are cached
// by board revision; interactive traffic is dominated by look commands
// against an unchanged grid.
func (b *Board) render() []string {
	if cached, ok := b.renders.Get(b.rev); ok {
		return cached.([]string)
	}
	rows := make([]string, b.height)
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		sb.Reset()
		sb.Grow(2*b.width - 1)
		for x := 0; x < b.width; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(b.cellByte(x, y))
		}
		rows[y] = sb.String()
	}
	b.renders.Add(b.rev, rows)
	return rows
}

func (b *Board) cellByte(x, y int) byte {
	switch b.states[y][x] {
	case stateFlagged:
		return 'F'
	case stateDug:
		if n := b.adjacentMines(x, y); n > 0 {
			return byte('0' + n)
		}
		return ' '
	}
	return '-'
}

// checkRep verifies the board invariants. A violation is a programming
// error, not a recoverable condition.
func (b *Board) checkRep() {
	if b.width < 1 || b.height < 1 {
		panic(fmt.Sprintf("board: degenerate dimensions %dx%d", b.width, b.height))
	}
	if len(b.mines) != b.height || len(b.states) != b.height {
		panic(fmt.Sprintf("board: want %d rows, have %d mine rows and %d state rows", b.height, len(b.mines), len(b.states)))
	}
	for y := 0; y < b.height; y++ {
		if len(b.mines[y]) != b.width || len(b.states[y]) != b.width {
			panic(fmt.Sprintf("board: row %d is not %d cells wide", y, b.width))
		}
		for x := 0; x < b.width; x++ {
			if b.states[y][x] == stateDug && b.mines[y][x] {
				panic(fmt.Sprintf("board: dug cell (%d,%d) still holds a mine", x, y))
			}
		}
	}
}
