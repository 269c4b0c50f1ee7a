package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	vl53l5cx "github.com/swdee/go-vl53l5cx"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Power cycle the sensor and check its identity",
	Long: `Power cycle the sensor through its LPn pin, move it to the configured
address and read back the device and revision id. No firmware is loaded.`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openSensor(cfg, driverLog())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.dev.Off(); err != nil {
		return err
	}
	if err := s.dev.On(); err != nil {
		return err
	}

	if cfg.Pins.LPn != "" && cfg.Bus.Address != vl53l5cx.DefaultAddress {
		if err := s.dev.SetAddress(cfg.Bus.Address); err != nil {
			return fmt.Errorf("failed to set address 0x%02X: %w", cfg.Bus.Address, err)
		}
	}

	if err := s.dev.IsAlive(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "VL53L5CX found at 0x%02X on %s\n", cfg.Bus.Address, cfg.Bus.Device)
	return nil
}
