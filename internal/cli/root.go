// Package cli implements the vl53l5cx command tree.
package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/swdee/go-vl53l5cx/internal/config"
	"golang.org/x/term"
)

var (
	// configuration file flags
	configPath string

	// output flags
	verbose bool
	plain   bool
)

var rootCmd = &cobra.Command{
	Use:   "vl53l5cx",
	Short: "VL53L5CX multi-zone ranging tool",
	Long: `vl53l5cx - A CLI tool for bringing up and streaming a VL53L5CX
multi-zone time-of-flight sensor.

The bus, power pins, firmware payloads, ranging settings and frame sinks are
read from a YAML file given with --config. Without one the sensor is expected
on /dev/i2c-1 at address 0x29 with the payloads under ./firmware.

Bus drivers:
  linux:  i2c-dev character device (bus.device: /dev/i2c-1)
  periph: periph.io host registry (bus.device: "" selects the first bus)`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log driver activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable coloured grid output")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads, validates and normalizes the configuration file, or
// returns the defaults when none was given
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)

	return cfg, nil
}

// driverLog returns the logger handed to the driver
func driverLog() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "vl53l5cx: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// colour reports whether frames are drawn as coloured grids
func colour(w io.Writer) bool {
	if plain {
		return false
	}

	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
