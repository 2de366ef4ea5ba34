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

package params

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// DefaultPort is the TCP port the server binds when none is given.
	DefaultPort = 4444

	// MaxPort is the highest port number accepted from the command line.
	MaxPort = 65535

	// DefaultWidth and DefaultHeight are the dimensions of the random
	// board generated when neither a size nor a board file is given.
	DefaultWidth  = 10
	DefaultHeight = 10

	// DefaultMineProbability is the chance that any one cell of a
	// randomly generated board holds a mine.
	DefaultMineProbability = 0.25
)

// Config are the startup parameters of a minesweeper server.
type Config struct {
	Port  int  // TCP port to listen on
	Debug bool // keep connections open after a detonation

	// Board selection. BoardFile, when set, wins over Width/Height.
	Width           int
	Height          int
	BoardFile       string
	MineProbability float64
}

// DefaultConfig contains the default parameters: a non-debug server on
// port 4444 hosting a random 10 by 10 board.
var DefaultConfig = Config{
	Port:            DefaultPort,
	Width:           DefaultWidth,
	Height:          DefaultHeight,
	MineProbability: DefaultMineProbability,
}

// Sanitize checks the provided user configuration and changes anything
// that's unreasonable or unworkable. Values that cannot be corrected
// are returned as errors.
func (c Config) Sanitize() (Config, error) {
	conf := c
	if conf.Port < 0 || conf.Port > MaxPort {
		return conf, fmt.Errorf("port %d outside [0, %d]", conf.Port, MaxPort)
	}
	if conf.BoardFile == "" && (conf.Width < 1 || conf.Height < 1) {
		return conf, fmt.Errorf("board size %dx%d is not positive", conf.Width, conf.Height)
	}
	if conf.MineProbability < 0 || conf.MineProbability > 1 {
		log.Warn("Sanitizing invalid mine probability", "provided", conf.MineProbability, "updated", DefaultMineProbability)
		conf.MineProbability = DefaultMineProbability
	}
	return conf, nil
}

// String implements fmt.Stringer for log output.
func (c Config) String() string {
	if c.BoardFile != "" {
		return fmt.Sprintf("port=%d debug=%t file=%s", c.Port, c.Debug, c.BoardFile)
	}
	return fmt.Sprintf("port=%d debug=%t size=%dx%d", c.Port, c.Debug, c.Width, c.Height)
}
