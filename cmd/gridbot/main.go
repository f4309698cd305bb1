// Command gridbot explores a grid arena, either against a reference map
// in simulation or by driving a controller over a serial or TCP link.
package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridbot/internal/monitoring"
)

var (
	configPath string
	quiet      bool

	rootCmd = &cobra.Command{
		Use:   "gridbot",
		Short: "Explore a grid arena with a simulated or physical robot",
		Long: `gridbot maps an unknown rectangular arena with a 3x3 robot carrying
short and long range distance sensors. It can run entirely in simulation,
emulate the robot controller for a remote driver, or drive real hardware.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if quiet {
				monitoring.SetLogger(nil)
			}
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gridbot: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "run configuration JSON file (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "silence diagnostic logging")
	rootCmd.AddCommand(simulateCmd, serveCmd, driveCmd, versionCmd)
}
