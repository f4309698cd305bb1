package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridbot/internal/api"
	"github.com/banshee-data/gridbot/internal/config"
	"github.com/banshee-data/gridbot/internal/display"
	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/hardware"
	"github.com/banshee-data/gridbot/internal/link"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/timeutil"
)

type driveOptions struct {
	Address    string
	SerialPath string
	Listen     string
	Autonomous bool
	ReportDir  string
	SaveMap    string
	SessionID  string
}

var drvOpts driveOptions

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive a robot controller over a serial or TCP link",
	Long: `drive connects to the controller, keeps the working map from its sensor
replies and publishes every snapshot to the display. With --autonomous it
explores on its own, otherwise it waits for commands on the status API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lc := *cfg.GetLink()
		if drvOpts.Address != "" {
			lc.Address, lc.SerialPath = drvOpts.Address, ""
		}
		if drvOpts.SerialPath != "" {
			lc.Address, lc.SerialPath = "", drvOpts.SerialPath
		}
		open := lc.Opener()
		if open == nil {
			return errors.New("no controller link: set link.address or link.serial_path, or pass --address or --serial")
		}

		client := link.NewClient(open, lc.GetRetryPolicy())
		defer client.Close()

		sum, err := drive(ctx, cfg, client, lc.GetRequestTimeout(), drvOpts)
		if err != nil {
			return err
		}
		if sum != nil {
			printSummary(cmd.OutOrStdout(), *sum)
		}
		return nil
	},
}

func init() {
	f := driveCmd.Flags()
	f.StringVar(&drvOpts.Address, "address", "", "controller TCP address, overriding the config")
	f.StringVar(&drvOpts.SerialPath, "serial", "", "controller serial device, overriding the config")
	f.StringVar(&drvOpts.Listen, "listen", ":8080", "status API, display websocket and link debug address")
	f.BoolVar(&drvOpts.Autonomous, "autonomous", false, "explore until done instead of waiting for driver commands")
	f.StringVar(&drvOpts.ReportDir, "report-dir", "", "write a report after an autonomous run")
	f.StringVar(&drvOpts.SaveMap, "save-map", "", "write the explored map as descriptors after an autonomous run")
	f.StringVar(&drvOpts.SessionID, "session", "", "session identifier (random when empty)")
	driveCmd.MarkFlagsMutuallyExclusive("address", "serial")
}

// drive runs a hardware session over client. It returns a summary only
// for autonomous runs.
func drive(ctx context.Context, cfg *config.RunConfig, client *link.Client, timeout time.Duration, opts driveOptions) (*explore.RunSummary, error) {
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect controller: %w", err)
	}
	ctrl := hardware.NewController(client, timeout)

	r, g, err := newRobot(cfg, ctrl)
	if err != nil {
		return nil, err
	}

	hub := display.NewHub()
	defer hub.Close()

	s, err := explore.NewSession(explore.SessionConfig{
		Robot:     r,
		Grid:      g,
		Source:    ctrl,
		Publisher: display.Fanout{hub, ctrl},
		ID:        opts.SessionID,
	})
	if err != nil {
		return nil, err
	}
	srv := api.NewServer(s)

	httpCtx, stopHTTP := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if opts.Listen != "" {
		mux := statusMux(srv, hub)
		client.AttachAdminRoutes(mux)
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(httpCtx, opts.Listen, mux)
		}()
	}
	defer func() {
		stopHTTP()
		wg.Wait()
	}()

	if !opts.Autonomous {
		if res := s.SensorSnapshot(ctx); res.Skipped {
			monitoring.Logf("drive: initial sense pass skipped")
		}
		monitoring.Logf("drive: session %s waiting for driver commands", s.ID())
		<-ctx.Done()
		return nil, nil
	}

	sum, err := explore.NewExplorer(s, explorerOptions(cfg, timeutil.RealClock{})).Run(ctx)
	if err != nil {
		return &sum, err
	}
	if err := finishRun(srv, s, sum, opts.ReportDir, opts.SaveMap); err != nil {
		return &sum, err
	}
	return &sum, nil
}
