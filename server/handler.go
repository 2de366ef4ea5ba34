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
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// handler runs the line protocol for one accepted connection.
type handler struct {
	srv  *Server
	conn net.Conn
	log  log.Logger
}

// run is the connection main loop: greet, then read one line at a
// time, dispatch it and write the reply, until the peer goes away,
// says bye, or detonates a mine on a non-debug server. The board lock
// is never held across socket I/O.
func (h *handler) run() {
	players := h.srv.playerIn()
	defer h.close()

	h.log.Debug("Player connected", "players", players)

	out := bufio.NewWriter(h.conn)
	board := h.srv.board
	greeting := fmt.Sprintf("Welcome to Minesweeper. Players: %d Board: %d columns by %d rows. Type 'help' for help.",
		players, board.Width(), board.Height())
	if err := h.send(out, greeting); err != nil {
		h.log.Debug("Greeting failed", "err", err)
		return
	}

	in := bufio.NewScanner(h.conn)
	for in.Scan() {
		reply, disconnect := h.dispatch(in.Text())
		if reply != "" {
			if err := h.send(out, reply); err != nil {
				h.log.Debug("Write failed", "err", err)
				return
			}
		}
		if disconnect {
			return
		}
	}
	if err := in.Err(); err != nil {
		h.log.Debug("Read failed", "err", err)
	}
}

// dispatch parses one line and applies it to the board, returning the
// reply (empty for bye) and whether the connection should close.
func (h *handler) dispatch(line string) (reply string, disconnect bool) {
	cmd := Parse(line)
	commandCounter.Inc(1)

	board := h.srv.board
	switch cmd.Kind {
	case CmdLook:
		return strings.Join(board.Render(), "\n"), false

	case CmdDig:
		boom, rows := board.Dig(cmd.X, cmd.Y)
		if !boom {
			return strings.Join(rows, "\n"), false
		}
		h.log.Info("Mine detonated", "x", cmd.X, "y", cmd.Y, "debug", h.srv.debug)
		if h.srv.debug {
			h.log.Debug("Board after detonation", "dump", string(board.Dump()))
		}
		return BoomMessage, !h.srv.debug

	case CmdFlag:
		return strings.Join(board.Flag(cmd.X, cmd.Y), "\n"), false

	case CmdDeflag:
		return strings.Join(board.Deflag(cmd.X, cmd.Y), "\n"), false

	case CmdHelp:
		return HelpMessage, false

	case CmdBye:
		return "", true

	default:
		invalidLineCounter.Inc(1)
		h.log.Debug("Rejected line", "line", line)
		return HelpMessage, false
	}
}

// send writes one reply and its terminating newline to the wire.
func (h *handler) send(out *bufio.Writer, reply string) error {
	if _, err := out.WriteString(reply); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}
	return out.Flush()
}

// close tears the connection down and gives back the player slot. Safe
// on every exit path, including a peer that vanished mid-write.
func (h *handler) close() {
	h.conn.Close()
	h.srv.removeConn(h.conn)
	players := h.srv.playerOut()
	h.log.Debug("Player disconnected", "players", players)
}
