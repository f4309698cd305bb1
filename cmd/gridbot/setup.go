package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/gridbot/internal/api"
	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/config"
	"github.com/banshee-data/gridbot/internal/display"
	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/fsutil"
	"github.com/banshee-data/gridbot/internal/mapfile"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/report"
	"github.com/banshee-data/gridbot/internal/robot"
	"github.com/banshee-data/gridbot/internal/security"
	"github.com/banshee-data/gridbot/internal/timeutil"
)

func loadConfig(path string) (*config.RunConfig, error) {
	if path == "" {
		return &config.RunConfig{}, nil
	}
	return config.Load(path)
}

// loadReference reads the ground-truth map for simulation and emulation.
func loadReference(fsys fsutil.FileSystem, path string, cfg *config.RunConfig) (*arena.Grid, error) {
	if path == "" {
		return nil, errors.New("a reference map is required (--map)")
	}
	if err := security.ValidateMapPath(path); err != nil {
		return nil, err
	}
	return mapfile.Load(fsys, path, cfg.GetRows(), cfg.GetCols())
}

// newRobot builds a robot on a fresh working grid with its start footprint
// marked.
func newRobot(cfg *config.RunConfig, act robot.Actuator) (*robot.Robot, *arena.Grid, error) {
	g, err := arena.New(cfg.GetRows(), cfg.GetCols())
	if err != nil {
		return nil, nil, err
	}
	r, err := robot.New(robot.Config{
		Start:           cfg.GetStart(),
		Heading:         cfg.GetStartHeading(),
		Sensors:         robot.DefaultSensors(cfg.GetShortRange(), cfg.GetLongRange()),
		Actuator:        act,
		RetractPhantoms: cfg.GetRetractPhantoms(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := r.SetStartPosition(cfg.GetStart(), g); err != nil {
		return nil, nil, err
	}
	return r, g, nil
}

func explorerOptions(cfg *config.RunConfig, clock timeutil.Clock) explore.Options {
	return explore.Options{
		MaxTicks:      cfg.GetMaxTicks(),
		CoverageLimit: cfg.GetCoverageLimit(),
		StallLimit:    cfg.GetStallLimit(),
		Clock:         clock,
	}
}

// newPacer holds each move to the configured physical rate, or runs flat
// out when realtime is off.
func newPacer(cfg *config.RunConfig, clock timeutil.Clock, realtime bool) timeutil.Pacer {
	if !realtime {
		return timeutil.Pacer{}
	}
	return timeutil.Pacer{
		Clock:          clock,
		StepDuration:   cfg.GetMoveDuration(),
		StepsPerSecond: cfg.GetStepsPerSecond(),
	}
}

// statusMux mounts the status API, the display websocket and metrics.
func statusMux(srv *api.Server, hub *display.Hub) *http.ServeMux {
	mux := srv.ServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/display/state", hub.StateHandler())
	mux.Handle("/metrics", monitoring.Handler())
	return mux
}

// serveHTTP runs an HTTP server on addr until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()
	monitoring.Logf("status server listening on %s", addr)

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
}

// finishRun records sum on the API server and writes the optional report
// and final map.
func finishRun(srv *api.Server, s *explore.Session, sum explore.RunSummary, reportDir, saveMap string) error {
	srv.SetSummary(sum)
	g := s.Grid()
	if reportDir != "" {
		pos, _ := s.Pose()
		paths, err := report.NewWriter(reportDir).Write(sum, g, pos)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		monitoring.Logf("map: %s, coverage: %s, summary: %s", paths.Map, paths.Coverage, paths.Summary)
	}
	if saveMap != "" {
		if err := mapfile.Save(fsutil.OSFileSystem{}, saveMap, g, mapfile.FormatDescriptor); err != nil {
			return fmt.Errorf("save map: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, sum explore.RunSummary) {
	fmt.Fprintf(w, "session %s: %s after %d ticks (%d moves, %d turns, %d rejected)\n",
		sum.SessionID, sum.Reason, sum.Ticks, sum.Moves, sum.Turns, sum.Rejected)
	fmt.Fprintf(w, "explored %.1f%%, moved through %.1f%%, %d obstacles, %s\n",
		sum.Explored, sum.Covered, sum.Obstacles, sum.Elapsed.Round(time.Millisecond))
}
