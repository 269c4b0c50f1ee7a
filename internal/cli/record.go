package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/swdee/go-vl53l5cx/internal/render"
	"github.com/swdee/go-vl53l5cx/internal/sink"
)

var (
	recordOut    string
	recordFrames int

	replayRealtime bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record ranging frames to a CBOR file",
	Long: `Stream ranging frames into a file as a CBOR sequence, one data item per
frame. The recording can be played back with the replay command.`,
	RunE: runRecord,
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print the frames of a CBOR recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "frames.cbor", "Output file")
	recordCmd.Flags().IntVarP(&recordFrames, "frames", "n", 0, "Number of frames to record (0 = until interrupted)")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Pace frames by their capture time")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Create(recordOut)
	if err != nil {
		return err
	}

	rec := sink.NewRecorder(f)
	defer rec.Close()

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

	count := 0
	err = s.stream(ctx, recordFrames, func(fr *sink.Frame) error {
		count++
		return rec.Send(fr)
	})

	fmt.Fprintf(cmd.ErrOrStderr(), "Recorded %d frames to %s\n", count, recordOut)
	return err
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	return replay(sink.NewReader(f), out, colour(out), replayRealtime)
}

// replay prints every frame of rd, optionally sleeping between frames for
// the time that separated them at capture
func replay(rd *sink.Reader, out io.Writer, coloured, realtime bool) error {
	draw := render.Plain
	if coloured {
		draw = render.Grid
	}

	var last time.Time

	for {
		fr, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if realtime && !last.IsZero() {
			if gap := fr.Time().Sub(last); gap > 0 {
				time.Sleep(gap)
			}
		}
		last = fr.Time()

		if _, err := fmt.Fprintln(out, draw(fr)); err != nil {
			return err
		}
	}
}
