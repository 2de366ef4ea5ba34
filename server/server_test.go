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
	"io"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweepnet/sweepd/board"
	"github.com/sweepnet/sweepd/params"
)

// testMines is the 7x5 fixture grid shared by the protocol tests.
var testMines = [][]bool{
	{true, false, false, true, false, false, false},
	{false, true, true, true, true, false, false},
	{false, true, false, true, false, false, false},
	{false, true, true, true, false, true, false},
	{false, false, false, false, false, false, false},
}

func newTestServer(t *testing.T, debug bool) *Server {
	t.Helper()
	b, err := board.New(testMines)
	require.NoError(t, err)

	cfg := params.DefaultConfig
	cfg.Port = 0 // let the kernel pick
	cfg.Debug = debug

	srv := New(&cfg, b)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	in   *bufio.Reader
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	port := srv.Addr().(*net.TCPAddr).Port
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, in: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(c.t, err)
}

func (c *testClient) readLine() string {
	c.t.Helper()
	line, err := c.in.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimSuffix(line, "\n")
}

// readBoard reads an h-row board reply.
func (c *testClient) readBoard(h int) []string {
	c.t.Helper()
	rows := make([]string, h)
	for i := range rows {
		rows[i] = c.readLine()
	}
	return rows
}

func (c *testClient) expectEOF() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.in.ReadString('\n')
	assert.Equal(c.t, io.EOF, err)
}

func TestGreeting(t *testing.T) {
	srv := newTestServer(t, false)

	first := dial(t, srv)
	assert.Equal(t,
		"Welcome to Minesweeper. Players: 1 Board: 7 columns by 5 rows. Type 'help' for help.",
		first.readLine())

	second := dial(t, srv)
	assert.Equal(t,
		"Welcome to Minesweeper. Players: 2 Board: 7 columns by 5 rows. Type 'help' for help.",
		second.readLine())
}

func TestPlayerCountDrops(t *testing.T) {
	srv := newTestServer(t, false)

	c := dial(t, srv)
	c.readLine()
	c.send("bye")
	c.expectEOF()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&srv.players) == 0
	}, 5*time.Second, 10*time.Millisecond)

	next := dial(t, srv)
	assert.Contains(t, next.readLine(), "Players: 1 ")
}

func TestLook(t *testing.T) {
	srv := newTestServer(t, false)
	c := dial(t, srv)
	c.readLine()

	c.send("look")
	for _, row := range c.readBoard(5) {
		assert.Equal(t, "- - - - - - -", row)
	}
}

// TestDigFlagScenario replays the canonical session: a counting dig, a
// flag that blocks digging, and a detonation whose cascade the next
// look observes.
func TestDigFlagScenario(t *testing.T) {
	srv := newTestServer(t, true)
	c := dial(t, srv)
	c.readLine()

	c.send("dig 2 0")
	rows := c.readBoard(5)
	assert.Equal(t, "- - 4 - - - -", rows[0])

	c.send("flag 0 0")
	rows = c.readBoard(5)
	assert.Equal(t, "F - 4 - - - -", rows[0])

	// The flag blocks the dig; nothing changes.
	c.send("dig 0 0")
	rows = c.readBoard(5)
	assert.Equal(t, "F - 4 - - - -", rows[0])

	c.send("dig 5 3")
	assert.Equal(t, "BOOM!", c.readLine())

	c.send("look")
	assert.Equal(t, []string{
		"F - 4 - - 1  ",
		"- - - - - 1  ",
		"- - - - 4 1  ",
		"- - - - 2    ",
		"- - - - 1    ",
	}, c.readBoard(5))

	// Detonate the corner, then dig it again: its mine is gone, so no
	// second boom, and it counts its one remaining mined neighbour.
	c.send("deflag 0 0")
	c.readBoard(5)
	c.send("dig 0 0")
	assert.Equal(t, "BOOM!", c.readLine())
	c.send("dig 0 0")
	rows = c.readBoard(5)
	assert.Equal(t, byte('1'), rows[0][0])
}

func TestBoomDisconnects(t *testing.T) {
	srv := newTestServer(t, false)
	c := dial(t, srv)
	c.readLine()

	c.send("dig 3 0")
	assert.Equal(t, "BOOM!", c.readLine())
	c.expectEOF()
}

func TestBoomKeepsConnectionInDebug(t *testing.T) {
	srv := newTestServer(t, true)
	c := dial(t, srv)
	c.readLine()

	c.send("dig 3 0")
	assert.Equal(t, "BOOM!", c.readLine())

	c.send("look")
	rows := c.readBoard(5)
	require.Len(t, rows, 5)
}

func TestHelpAndInvalid(t *testing.T) {
	srv := newTestServer(t, false)
	c := dial(t, srv)
	c.readLine()

	for _, line := range []string{"help", "", "frobnicate", "dig 1", "dig one two"} {
		c.send(line)
		assert.Equal(t, HelpMessage, c.readLine(), "line %q", line)
	}

	// The connection survives any amount of garbage.
	c.send("look")
	assert.Len(t, c.readBoard(5), 5)
}

func TestByeClosesWithoutReply(t *testing.T) {
	srv := newTestServer(t, false)
	c := dial(t, srv)
	c.readLine()

	c.send("bye")
	c.expectEOF()
}

func TestOutOfRangeCoordinates(t *testing.T) {
	srv := newTestServer(t, false)
	c := dial(t, srv)
	c.readLine()

	c.send("dig -1 -1")
	rows := c.readBoard(5)
	assert.Equal(t, "- - - - - - -", rows[0])

	c.send("flag 100 100")
	rows = c.readBoard(5)
	assert.Equal(t, "- - - - - - -", rows[0])
}

// TestSharedBoard checks that one client's mutation is another's next
// observation.
func TestSharedBoard(t *testing.T) {
	srv := newTestServer(t, false)

	alice := dial(t, srv)
	alice.readLine()
	bob := dial(t, srv)
	bob.readLine()

	alice.send("dig 2 0")
	alice.readBoard(5)

	bob.send("look")
	rows := bob.readBoard(5)
	assert.Equal(t, "- - 4 - - - -", rows[0])
}

// TestConcurrentClients runs several chattering clients against one
// board and checks every reply is a well-formed snapshot: either BOOM!
// or exactly five 13-character rows.
func TestConcurrentClients(t *testing.T) {
	srv := newTestServer(t, true)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		c := dial(t, srv)
		c.readLine()
		wg.Add(1)
		go func(c *testClient, seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				var cmd string
				switch rnd.Intn(3) {
				case 0:
					cmd = "look"
				case 1:
					cmd = fmt.Sprintf("dig %d %d", rnd.Intn(7), rnd.Intn(5))
				default:
					cmd = fmt.Sprintf("flag %d %d", rnd.Intn(7), rnd.Intn(5))
				}
				c.send(cmd)
				first := c.readLine()
				if first == BoomMessage {
					continue
				}
				rows := append([]string{first}, c.readBoard(4)...)
				for _, row := range rows {
					assert.Len(t, row, 13)
				}
			}
		}(c, int64(g))
	}
	wg.Wait()
}
