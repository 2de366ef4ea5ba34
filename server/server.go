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

// Package server accepts TCP connections and speaks the minesweeper
// line protocol, one goroutine per client, all of them sharing a
// single board.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/sweepnet/sweepd/board"
	"github.com/sweepnet/sweepd/params"
)

var (
	// Metrics for the connection server
	acceptCounter      = metrics.NewRegisteredCounter("server/accepts", nil)
	commandCounter     = metrics.NewRegisteredCounter("server/commands", nil)
	invalidLineCounter = metrics.NewRegisteredCounter("server/commands/invalid", nil)
	playerGauge        = metrics.NewRegisteredGauge("server/players", nil)
)

// Server owns the listening socket and the shared board. Connections
// are handled concurrently; the board serializes them internally.
type Server struct {
	cfg   *params.Config
	board *board.Board
	debug bool

	ln      net.Listener
	players int32 // currently connected clients

	mu    sync.Mutex
	conns map[net.Conn]struct{} // open connections, closed on Stop

	quit chan struct{}
	wg   sync.WaitGroup
	log  log.Logger
}

// New returns an unstarted server for the given configuration and
// board.
func New(cfg *params.Config, b *board.Board) *Server {
	return &Server{
		cfg:   cfg,
		board: b,
		debug: cfg.Debug,
		conns: make(map[net.Conn]struct{}),
		quit:  make(chan struct{}),
		log:   log.New("module", "server"),
	}
}

// Start binds the listening socket and spawns the accept loop. A bind
// failure is returned to the caller; it is fatal at startup.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("bind port %d: %v", s.cfg.Port, err)
	}
	s.ln = ln
	s.log.Info("Server listening", "addr", ln.Addr(), "board", fmt.Sprintf("%dx%d", s.board.Width(), s.board.Height()), "debug", s.debug)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the address the server is listening on. Only valid
// after a successful Start.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop closes the listener and every open connection, then waits for
// the handlers to drain.
func (s *Server) Stop() {
	close(s.quit)
	s.ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("Server stopped")
}

// acceptLoop hands each accepted connection to its own handler
// goroutine. Per-connection failures never stop the loop; only the
// listening socket going away does.
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			s.log.Error("Listener failed", "err", err)
			return
		}
		acceptCounter.Inc(1)

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		h := &handler{
			srv:  s,
			conn: conn,
			log:  s.log.New("remote", conn.RemoteAddr()),
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			h.run()
		}()
	}
}

func (s *Server) removeConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// playerIn counts a new client in and returns the count including it,
// for the greeting.
func (s *Server) playerIn() int {
	n := atomic.AddInt32(&s.players, 1)
	playerGauge.Update(int64(n))
	return int(n)
}

func (s *Server) playerOut() int {
	n := atomic.AddInt32(&s.players, -1)
	playerGauge.Update(int64(n))
	return int(n)
}
