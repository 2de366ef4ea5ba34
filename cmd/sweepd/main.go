// Copyright 2020 The sweepd Authors
// This file is part of sweepd.
//
// sweepd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sweepd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sweepd. If not, see <http://www.gnu.org/licenses/>.

// sweepd is a multi-player minesweeper server: one shared board, many
// TCP clients, a line-oriented text protocol.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/sweepnet/sweepd/board"
	"github.com/sweepnet/sweepd/params"
	"github.com/sweepnet/sweepd/server"
)

var (
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "keep connections open after a detonation",
	}
	noDebugFlag = cli.BoolFlag{
		Name:  "no-debug",
		Usage: "disconnect clients after a detonation (the default; overrides --debug)",
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Usage: "TCP port to listen on",
		Value: params.DefaultPort,
	}
	sizeFlag = cli.StringFlag{
		Name:  "size",
		Usage: "dimensions X,Y of a random board (mutually exclusive with --file)",
	}
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "path of a board file to load (mutually exclusive with --size)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "sweepd"
	app.Usage = "multi-player minesweeper server"
	app.Flags = []cli.Flag{debugFlag, noDebugFlag, portFlag, sizeFlag, fileFlag, verbosityFlag}
	app.Action = sweepd
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sweepd(ctx *cli.Context) error {
	setupLogging(ctx.Int(verbosityFlag.Name))

	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	b, err := makeBoard(cfg)
	if err != nil {
		log.Crit("Failed to build board", "err", err)
	}

	srv := server.New(&cfg, b)
	if err := srv.Start(); err != nil {
		log.Crit("Failed to start server", "err", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	got := <-sig
	log.Info("Shutting down", "signal", got)
	srv.Stop()
	return nil
}

func makeConfig(ctx *cli.Context) (params.Config, error) {
	cfg := params.DefaultConfig
	cfg.Port = ctx.Int(portFlag.Name)
	cfg.Debug = ctx.Bool(debugFlag.Name) && !ctx.Bool(noDebugFlag.Name)

	if ctx.IsSet(sizeFlag.Name) && ctx.IsSet(fileFlag.Name) {
		return cfg, fmt.Errorf("--%s and --%s are mutually exclusive", sizeFlag.Name, fileFlag.Name)
	}
	if ctx.IsSet(fileFlag.Name) {
		cfg.BoardFile = ctx.String(fileFlag.Name)
	} else if ctx.IsSet(sizeFlag.Name) {
		width, height, err := parseSize(ctx.String(sizeFlag.Name))
		if err != nil {
			return cfg, err
		}
		cfg.Width, cfg.Height = width, height
	}
	return cfg.Sanitize()
}

// parseSize parses the X,Y argument of --size.
func parseSize(s string) (width, height int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("size %q: want X,Y", s)
	}
	if width, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("size %q: %v", s, err)
	}
	if height, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("size %q: %v", s, err)
	}
	if width < 1 || height < 1 {
		return 0, 0, fmt.Errorf("size %q: dimensions must be positive", s)
	}
	return width, height, nil
}

func makeBoard(cfg params.Config) (*board.Board, error) {
	if cfg.BoardFile != "" {
		return board.Load(cfg.BoardFile)
	}
	return board.NewRandom(cfg.Width, cfg.Height, cfg.MineProbability)
}

func setupLogging(verbosity int) {
	usecolor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.StreamHandler(output, log.TerminalFormat(usecolor))
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), handler))
}
