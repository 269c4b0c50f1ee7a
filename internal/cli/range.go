package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swdee/go-vl53l5cx/internal/render"
	"github.com/swdee/go-vl53l5cx/internal/sink"
)

var rangeFrames int

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Initialise the sensor and print ranging frames",
	Long: `Load the firmware, apply the ranging settings and print the distance of
the first target in every zone for each frame. Press Ctrl+C to stop.`,
	RunE: runRange,
}

func init() {
	rangeCmd.Flags().IntVarP(&rangeFrames, "frames", "n", 10, "Number of frames to print (0 = until interrupted)")
	rootCmd.AddCommand(rangeCmd)
}

func runRange(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openSensor(cfg, driverLog())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.bringUp(cfg.Ranging); err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	out := cmd.OutOrStdout()
	draw := render.Plain
	if colour(out) {
		draw = render.Grid
	}

	return s.stream(ctx, rangeFrames, func(f *sink.Frame) error {
		_, err := fmt.Fprintln(out, draw(f))
		return err
	})
}
