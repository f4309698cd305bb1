package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridbot/internal/api"
	"github.com/banshee-data/gridbot/internal/config"
	"github.com/banshee-data/gridbot/internal/display"
	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/fsutil"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/robot"
	"github.com/banshee-data/gridbot/internal/timeutil"
)

type simulateOptions struct {
	MapPath   string
	ReportDir string
	SaveMap   string
	Listen    string
	Realtime  bool
	Hold      bool
	SessionID string
}

var simOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Explore a reference map entirely in simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sum, err := simulate(ctx, cfg, fsutil.OSFileSystem{}, timeutil.RealClock{}, simOpts)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simOpts.MapPath, "map", "m", "", "reference map file (text or descriptor format)")
	f.StringVar(&simOpts.ReportDir, "report-dir", "", "write a PNG map, coverage chart and JSON summary here")
	f.StringVar(&simOpts.SaveMap, "save-map", "", "write the explored map as descriptors to this file")
	f.StringVar(&simOpts.Listen, "listen", "", "serve the status API and display websocket on this address")
	f.BoolVar(&simOpts.Realtime, "realtime", false, "pace moves at the configured physical rate")
	f.BoolVar(&simOpts.Hold, "hold", false, "keep serving --listen after the run until interrupted")
	f.StringVar(&simOpts.SessionID, "session", "", "session identifier (random when empty)")
	_ = simulateCmd.MarkFlagRequired("map")
}

// simulate runs one autonomous exploration against the reference map.
func simulate(ctx context.Context, cfg *config.RunConfig, fsys fsutil.FileSystem, clock timeutil.Clock, opts simulateOptions) (explore.RunSummary, error) {
	ref, err := loadReference(fsys, opts.MapPath, cfg)
	if err != nil {
		return explore.RunSummary{}, err
	}
	r, g, err := newRobot(cfg, nil)
	if err != nil {
		return explore.RunSummary{}, err
	}

	hub := display.NewHub()
	defer hub.Close()

	s, err := explore.NewSession(explore.SessionConfig{
		Robot:     r,
		Grid:      g,
		Source:    robot.SimulatedSource{Reference: ref},
		Publisher: hub,
		Pacer:     newPacer(cfg, clock, opts.Realtime),
		ID:        opts.SessionID,
	})
	if err != nil {
		return explore.RunSummary{}, err
	}
	srv := api.NewServer(s)

	httpCtx, stopHTTP := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if opts.Listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(httpCtx, opts.Listen, statusMux(srv, hub))
		}()
	}
	defer func() {
		stopHTTP()
		wg.Wait()
	}()

	sum, err := explore.NewExplorer(s, explorerOptions(cfg, clock)).Run(ctx)
	if err != nil {
		return sum, err
	}
	if err := finishRun(srv, s, sum, opts.ReportDir, opts.SaveMap); err != nil {
		return sum, err
	}

	if opts.Listen != "" && opts.Hold {
		monitoring.Logf("run finished, serving %s until interrupted", opts.Listen)
		<-ctx.Done()
	}
	return sum, nil
}
