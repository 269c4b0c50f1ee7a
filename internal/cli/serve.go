package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/swdee/go-vl53l5cx/internal/config"
	"github.com/swdee/go-vl53l5cx/internal/sink"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream ranging frames to websocket, serial and modbus sinks",
	Long: `Range continuously and publish every frame.

Websocket clients connecting to /frames receive each frame as a binary CBOR
message. When configured, frames are also written as a CBOR sequence to a
serial port and zone distances are exported to a modbus TCP server as holding
registers.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "HTTP listen address (overrides sinks.listen)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveListen != "" {
		cfg.Sinks.Listen = serveListen
	}

	l := log.New(os.Stderr, "serve: ", log.LstdFlags)

	sinks, hub, err := buildSinks(cfg.Sinks, l)
	if err != nil {
		return err
	}
	defer sinks.Close()

	var srv *http.Server
	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle("/frames", hub)

		srv = &http.Server{Addr: cfg.Sinks.Listen, Handler: mux}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Printf("HTTP server failed: %v", err)
			}
		}()

		l.Printf("Websocket frames on ws://%s/frames", cfg.Sinks.Listen)
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

	err = s.stream(ctx, 0, func(f *sink.Frame) error {
		// a failing sink is logged, ranging carries on
		if err := sinks.Send(f); err != nil {
			l.Printf("Frame %d: %v", f.Seq, err)
		}
		return nil
	})

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	return err
}

// buildSinks opens every configured sink. The hub is nil when no listen
// address is set
func buildSinks(cfg config.SinksConfig, l *log.Logger) (sink.Multi, *sink.Hub, error) {
	var (
		sinks sink.Multi
		hub   *sink.Hub
	)

	if cfg.Listen != "" {
		hub = sink.NewHub(l)
		sinks = append(sinks, hub)
	}

	if sc := cfg.Serial; sc != nil {
		rec, err := sink.OpenSerial(sc.Port, sc.Baud)
		if err != nil {
			sinks.Close()
			return nil, nil, err
		}
		sinks = append(sinks, rec)
	}

	if mc := cfg.Modbus; mc != nil {
		mb, err := sink.DialModbus(sink.ModbusConfig{
			Endpoint: mc.Endpoint,
			UnitID:   mc.UnitID,
			Address:  mc.Address,
			Timeout:  time.Duration(mc.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			sinks.Close()
			return nil, nil, fmt.Errorf("modbus %s: %w", mc.Endpoint, err)
		}
		sinks = append(sinks, mb)
	}

	if len(sinks) == 0 {
		return nil, nil, errors.New("no sinks configured, set sinks.listen, sinks.serial or sinks.modbus")
	}

	return sinks, hub, nil
}
