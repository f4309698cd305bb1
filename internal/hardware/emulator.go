package hardware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/link"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/robot"
)

// RobotFactory builds a fresh robot and working grid for one connection.
type RobotFactory func() (*robot.Robot, *arena.Grid, error)

// Emulator plays the controller: it accepts command tokens, moves its own
// robot over a working map, and replies with the readings a real sensor
// array would give against the reference map.
type Emulator struct {
	ref     *arena.Grid
	factory RobotFactory
}

// NewEmulator returns an emulator over the reference map ref.
func NewEmulator(ref *arena.Grid, factory RobotFactory) *Emulator {
	return &Emulator{ref: ref, factory: factory}
}

// ListenAndServe accepts TCP connections on addr until ctx ends. Every
// connection gets its own robot.
func (e *Emulator) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return e.ServeListener(ctx, ln)
}

// ServeListener is ListenAndServe on an existing listener. It closes ln.
func (e *Emulator) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	monitoring.Logf("emulator: listening on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			if err := e.Serve(ctx, conn); err != nil {
				monitoring.Logf("emulator: %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// Serve answers one connection until it closes or ctx ends.
func (e *Emulator) Serve(ctx context.Context, port link.Port) error {
	r, working, err := e.factory()
	if err != nil {
		port.Close()
		return err
	}
	s := &emulatedSession{ref: e.ref, robot: r, grid: working}
	s.robot.Sense(ctx, s.grid, robot.SimulatedSource{Reference: s.ref})

	mux := link.NewMux(port)
	defer mux.Close()
	_, lines := mux.Subscribe()

	done := make(chan error, 1)
	go func() {
		done <- mux.Monitor(ctx)
		mux.Close()
	}()

	for line := range lines {
		for _, reply := range s.handle(ctx, line) {
			if err := mux.SendCommand(reply); err != nil {
				return fmt.Errorf("reply: %w", err)
			}
		}
	}
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		monitoring.Logf("emulator: read loop ended: %v", err)
	}
	return nil
}

type emulatedSession struct {
	ref   *arena.Grid
	robot *robot.Robot
	grid  *arena.Grid
}

// handle runs every token on a line and returns the replies to send.
func (s *emulatedSession) handle(ctx context.Context, line string) []string {
	_, body := protocol.SplitPrefix(line)
	if strings.HasPrefix(body, "{") {
		monitoring.Logf("emulator: unhandled status message %q", body)
		return nil
	}
	tokens, err := protocol.ParseTokens(body)
	if err != nil {
		monitoring.Logf("emulator: %v", err)
	}

	var replies []string
	for _, tok := range tokens {
		switch {
		case tok.Cmd.IsTurn():
			if _, err := s.robot.Turn(ctx, tok.Cmd); err != nil {
				monitoring.Logf("emulator: %v", err)
			}
		case tok.Cmd.IsMove():
			if _, err := s.robot.Move(ctx, s.grid, tok.Cmd, tok.Steps); err != nil {
				monitoring.Logf("emulator: %v", err)
			}
		}
		replies = append(replies, s.readings())
		s.robot.Sense(ctx, s.grid, robot.SimulatedSource{Reference: s.ref})
	}
	return replies
}

// readings formats what every sensor sees on the reference map.
func (s *emulatedSession) readings() string {
	sensors := s.robot.Sensors()
	ids := make([]string, len(sensors))
	values := make(map[string]int, len(sensors))
	for i, sn := range sensors {
		ids[i] = sn.ID()
		values[sn.ID()] = sn.Detect(s.ref)
	}
	return protocol.FormatSensorLine(ids, values)
}
