// Command vl53l5cx brings up a VL53L5CX sensor and streams its ranging frames.
package main

import (
	"fmt"
	"os"

	"github.com/swdee/go-vl53l5cx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
