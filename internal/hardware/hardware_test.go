package hardware

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/link"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/robot"
	"github.com/banshee-data/gridbot/internal/testutil"
)

var (
	shortBand = robot.RangeBand{Min: 1, Max: 2}
	longBand  = robot.RangeBand{Min: 3, Max: 5}
)

// fakeLink records sent lines and answers Next from a queue.
type fakeLink struct {
	mu      sync.Mutex
	sent    []string
	replies []string
	sendErr error
	drained int
}

func (l *fakeLink) Send(_ context.Context, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, line)
	return nil
}

func (l *fakeLink) Next(ctx context.Context, accept func(string) bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.replies) > 0 {
		line := l.replies[0]
		l.replies = l.replies[1:]
		if accept(line) {
			return line, nil
		}
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (l *fakeLink) Drain() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drained++
	return 0
}

func newRobot(t *testing.T, start arena.Point) *robot.Robot {
	t.Helper()
	r, err := robot.New(robot.Config{Start: start, Heading: arena.Up, Sensors: robot.DefaultSensors(shortBand, longBand)})
	require.NoError(t, err)
	return r
}

func TestControllerActuate(t *testing.T) {
	l := &fakeLink{}
	c := NewController(l, time.Second)

	require.NoError(t, c.Actuate(context.Background(), robot.Forward, 3))
	require.NoError(t, c.Actuate(context.Background(), robot.TurnLeft, 1))
	assert.Equal(t, []string{"AW3|", "AA|"}, l.sent)
	assert.Equal(t, 2, l.drained)

	err := c.Actuate(context.Background(), robot.Command(42), 1)
	assert.ErrorIs(t, err, protocol.ErrBadToken)
}

func TestControllerReadingsAfterMotion(t *testing.T) {
	l := &fakeLink{replies: []string{"garbage", "F1:1|F2:7|F3:-1|"}}
	c := NewController(l, time.Second)
	sensors := newRobot(t, arena.Pt(1, 1)).Sensors()

	require.NoError(t, c.Actuate(context.Background(), robot.Forward, 1))
	got, err := c.Readings(context.Background(), sensors)
	require.NoError(t, err)

	assert.Equal(t, []string{"AW|"}, l.sent, "motion reply is awaited, not requested")
	assert.Equal(t, map[string]int{"F1": 1, "F2": robot.NoReading, "F3": robot.NoReading}, got)
}

func TestControllerReadingsRequestsWhenIdle(t *testing.T) {
	l := &fakeLink{replies: []string{"L1:4|R1:2|"}}
	c := NewController(l, time.Second)
	sensors := newRobot(t, arena.Pt(1, 1)).Sensors()

	got, err := c.Readings(context.Background(), sensors)
	require.NoError(t, err)
	assert.Equal(t, []string{"AU|"}, l.sent)
	assert.Equal(t, map[string]int{"L1": 4, "R1": 2}, got)
}

func TestControllerReadingsTimeout(t *testing.T) {
	l := &fakeLink{}
	c := NewController(l, 10*time.Millisecond)

	_, err := c.Readings(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestControllerSendFailure(t *testing.T) {
	l := &fakeLink{sendErr: link.ErrLinkDown}
	c := NewController(l, time.Second)

	assert.ErrorIs(t, c.Actuate(context.Background(), robot.Forward, 1), link.ErrLinkDown)
	_, err := c.Readings(context.Background(), nil)
	assert.ErrorIs(t, err, link.ErrLinkDown)
}

func TestControllerPublish(t *testing.T) {
	l := &fakeLink{}
	c := NewController(l, 0)
	assert.Equal(t, DefaultRequestTimeout, c.timeout)

	msg := protocol.StatusMessage{
		Robot: []protocol.RobotPose{{X: 2, Y: 2, Direction: "up"}},
		Map:   []protocol.MapState{{Explored: "C018", Obstacle: "", Length: 0}},
	}
	require.NoError(t, c.Publish(context.Background(), msg))
	require.Len(t, l.sent, 1)
	assert.True(t, strings.HasPrefix(l.sent[0], protocol.DisplayPrefix+"{"))
}

func factoryFor(t *testing.T, rows, cols int, start arena.Point) RobotFactory {
	return func() (*robot.Robot, *arena.Grid, error) {
		g := arena.MustNew(rows, cols)
		r := newRobot(t, start)
		if err := r.SetStartPosition(start, g); err != nil {
			return nil, nil, err
		}
		return r, g, nil
	}
}

func TestEmulatorRepliesPerToken(t *testing.T) {
	ref := testutil.GridFromRows(t,
		"......",
		"......",
		".#....",
		"......",
		"......",
		"......",
	)
	port := link.NewTestablePort()
	e := NewEmulator(ref, factoryFor(t, 6, 6, arena.Pt(1, 1)))

	done := make(chan error, 1)
	go func() { done <- e.Serve(context.Background(), port) }()

	port.AddReadData([]byte("AU|D|A\n"))
	port.AddReadData([]byte("B{\"robot\":[]}\n"))
	require.Eventually(t, func() bool {
		return strings.Count(port.Written(), "\n") == 3
	}, 2*time.Second, 5*time.Millisecond)

	lines := strings.Split(strings.TrimSpace(port.Written()), "\n")
	// The obstacle at (3,1) is one cell ahead of F2.
	assert.Equal(t, "F1:-1|F2:1|F3:-1|R1:-1|R2:-1|L1:-1|", lines[0])
	for _, l := range lines {
		assert.True(t, protocol.IsSensorLine(l), l)
	}
	assert.Equal(t, lines[0], lines[2], "turning right then left restores the view")

	port.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the port closed")
	}
}

func TestEmulatorFactoryError(t *testing.T) {
	port := link.NewTestablePort()
	e := NewEmulator(arena.MustNew(5, 5), func() (*robot.Robot, *arena.Grid, error) {
		return nil, nil, errors.New("no robot")
	})
	assert.Error(t, e.Serve(context.Background(), port))
	assert.True(t, port.IsClosed())
}

// pipeOpener hands out the client end of an in-memory connection once.
func pipeOpener(conn net.Conn) link.Opener {
	var once sync.Once
	return func(context.Context) (link.Port, error) {
		var p link.Port
		once.Do(func() { p = conn })
		if p == nil {
			return nil, errors.New("pipe already used")
		}
		return p, nil
	}
}

func TestDriveAgainstEmulatorMatchesSimulation(t *testing.T) {
	ref := testutil.GridFromRows(t,
		"........",
		"........",
		"....#...",
		"........",
		"........",
		"........",
		"........",
		"........",
	)
	start := arena.Pt(1, 1)

	// Simulated run.
	simGrid := arena.MustNew(8, 8)
	simRobot := newRobot(t, start)
	require.NoError(t, simRobot.SetStartPosition(start, simGrid))
	simSession, err := explore.NewSession(explore.SessionConfig{
		Robot: simRobot, Grid: simGrid, Source: robot.SimulatedSource{Reference: ref}, ID: "sim",
	})
	require.NoError(t, err)
	simSum, err := explore.NewExplorer(simSession, explore.Options{MaxTicks: 500, StallLimit: 100}).Run(context.Background())
	require.NoError(t, err)

	// The same run through the controller protocol.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverConn, clientConn := net.Pipe()
	go func() { _ = NewEmulator(ref, factoryFor(t, 8, 8, start)).Serve(ctx, serverConn) }()

	client := link.NewClient(pipeOpener(clientConn), link.RetryPolicy{MaxAttempts: 1})
	defer client.Close()
	ctrl := NewController(client, 2*time.Second)

	hwGrid := arena.MustNew(8, 8)
	hwRobot, err := robot.New(robot.Config{
		Start: start, Heading: arena.Up, Sensors: robot.DefaultSensors(shortBand, longBand), Actuator: ctrl,
	})
	require.NoError(t, err)
	require.NoError(t, hwRobot.SetStartPosition(start, hwGrid))
	hwSession, err := explore.NewSession(explore.SessionConfig{
		Robot: hwRobot, Grid: hwGrid, Source: ctrl, Publisher: ctrl, ID: "hw",
	})
	require.NoError(t, err)
	hwSum, err := explore.NewExplorer(hwSession, explore.Options{MaxTicks: 500, StallLimit: 100}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, explore.StopDone, hwSum.Reason)
	assert.Equal(t, simSum.Reason, hwSum.Reason)
	assert.Equal(t, simSum.Ticks, hwSum.Ticks)
	assert.Equal(t, simSum.Explored, hwSum.Explored)
	assert.Equal(t, simSum.Obstacles, hwSum.Obstacles)
	assert.Zero(t, hwSum.Skipped)
	assert.Equal(t, arena.ExploredDescriptor(simGrid), arena.ExploredDescriptor(hwGrid))
	assert.Equal(t, arena.ObstacleDescriptor(simGrid), arena.ObstacleDescriptor(hwGrid))
}

func TestEmulatorServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	e := NewEmulator(testutil.OpenGrid(t, 6, 6), factoryFor(t, 6, 6, arena.Pt(1, 1)))
	done := make(chan error, 1)
	go func() { done <- e.ServeListener(ctx, ln) }()

	client := link.NewClient(link.DialTCP(ln.Addr().String(), time.Second), link.RetryPolicy{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond})
	defer client.Close()
	ctrl := NewController(client, 2*time.Second)

	got, err := ctrl.Readings(ctx, newRobot(t, arena.Pt(1, 1)).Sensors())
	require.NoError(t, err)
	assert.Len(t, got, 6)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeListener did not stop")
	}
}
