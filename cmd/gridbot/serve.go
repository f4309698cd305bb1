package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/config"
	"github.com/banshee-data/gridbot/internal/fsutil"
	"github.com/banshee-data/gridbot/internal/hardware"
	"github.com/banshee-data/gridbot/internal/link"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/robot"
)

type serveOptions struct {
	MapPath    string
	Listen     string
	SerialPath string
}

var srvOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Emulate the robot controller for a remote driver",
	Long: `serve answers controller command tokens (W, S, A, D, U) with sensor
reading lines computed against the reference map, so a driver can be
developed without hardware. Each connection gets a fresh robot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serveEmulator(ctx, cfg, fsutil.OSFileSystem{}, srvOpts)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&srvOpts.MapPath, "map", "m", "", "reference map file (text or descriptor format)")
	f.StringVar(&srvOpts.Listen, "listen", ":5182", "TCP address to accept drivers on")
	f.StringVar(&srvOpts.SerialPath, "serial", "", "serve a single driver on this serial device instead of TCP")
	_ = serveCmd.MarkFlagRequired("map")
}

func serveEmulator(ctx context.Context, cfg *config.RunConfig, fsys fsutil.FileSystem, opts serveOptions) error {
	ref, err := loadReference(fsys, opts.MapPath, cfg)
	if err != nil {
		return err
	}
	emu := hardware.NewEmulator(ref, func() (*robot.Robot, *arena.Grid, error) {
		return newRobot(cfg, nil)
	})

	if opts.SerialPath == "" {
		return emu.ListenAndServe(ctx, opts.Listen)
	}
	framing := cfg.GetLink().Port
	port, err := link.OpenSerial(opts.SerialPath, framing)(ctx)
	if err != nil {
		return fmt.Errorf("emulator: %w", err)
	}
	monitoring.Logf("emulator: serving controller on %s at %s", opts.SerialPath, framing)
	return emu.Serve(ctx, port)
}
