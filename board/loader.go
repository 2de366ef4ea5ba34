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
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// NewRandom builds a width by height board where each cell
// independently holds a mine with probability p.
func NewRandom(width, height int, p float64) (*Board, error) {
	if width < 1 || height < 1 {
		return nil, ErrBadSize
	}
	if p < 0 || p > 1 {
		return nil, ErrBadChance
	}
	mines := make([][]bool, height)
	for y := range mines {
		mines[y] = make([]bool, width)
		for x := range mines[y] {
			mines[y][x] = rand.Float64() < p
		}
	}
	return New(mines)
}

// Load reads a board file. The format is a header line "W H" followed
// by exactly H lines of exactly W space-separated "0" or "1" values,
// with "1" marking a mine. Both "\n" and "\r\n" line endings are
// accepted. Any deviation from the grammar is an error.
func Load(path string) (*Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return b, nil
}

// Parse reads the board file grammar from r. See Load.
func Parse(r io.Reader) (*Board, error) {
	sc := bufio.NewScanner(r)

	width, height, err := parseHeader(sc)
	if err != nil {
		return nil, err
	}
	mines := make([][]bool, 0, height)
	for y := 0; y < height; y++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("line %d: want %d board rows, file ends after %d", y+2, height, y)
		}
		row, err := parseRow(strings.TrimSuffix(sc.Text(), "\r"), width)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", y+2, err)
		}
		mines = append(mines, row)
	}
	if sc.Scan() {
		return nil, fmt.Errorf("line %d: trailing data after %d board rows", height+2, height)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(mines)
}

func parseHeader(sc *bufio.Scanner) (width, height int, err error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("missing header line")
	}
	fields := strings.Split(strings.TrimSuffix(sc.Text(), "\r"), " ")
	if len(fields) != 2 || strings.HasPrefix(fields[0], "+") || strings.HasPrefix(fields[1], "+") {
		return 0, 0, fmt.Errorf("header %q: want two space-separated integers", sc.Text())
	}
	if width, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("header width %q: %v", fields[0], err)
	}
	if height, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("header height %q: %v", fields[1], err)
	}
	if width < 1 || height < 1 {
		return 0, 0, fmt.Errorf("header size %dx%d is not positive", width, height)
	}
	return width, height, nil
}

func parseRow(line string, width int) ([]bool, error) {
	values := strings.Split(line, " ")
	if len(values) != width {
		return nil, fmt.Errorf("row %q: want %d values, have %d", line, width, len(values))
	}
	row := make([]bool, width)
	for x, v := range values {
		switch v {
		case "0":
		case "1":
			row[x] = true
		default:
			return nil, fmt.Errorf("value %q: want \"0\" or \"1\"", v)
		}
	}
	return row, nil
}
