package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/swdee/go-vl53l5cx"
)

func main() {

	i2cbus := flag.String("b", "/dev/i2c-1", "Path to I2C bus to use")
	fwDir := flag.String("fw", "./firmware", "Directory holding firmware.bin, config.bin and xtalk.bin")
	flag.Parse()

	payloads, err := vl53l5cx.LoadPayloads(
		*fwDir+"/firmware.bin",
		*fwDir+"/config.bin",
		*fwDir+"/xtalk.bin",
	)

	if err != nil {
		log.Fatal(err)
	}

	// Open I2C bus (adjust bus number and default address as needed)
	bus, err := vl53l5cx.NewI2CBus(vl53l5cx.DefaultAddress, *i2cbus)

	if err != nil {
		log.Fatal(err)
	}

	defer bus.Close()

	// create new sensor instance reporting a single target per zone
	sensor, err := vl53l5cx.NewWithLog(bus, payloads,
		log.New(os.Stderr, "vl53l5cx: ", log.LstdFlags))

	if err != nil {
		log.Fatal(err)
	}

	if err := sensor.InitSensor(vl53l5cx.DefaultAddress); err != nil {
		log.Fatalf("Init failed: %v", err)
	}

	// 8x8 zones limits the ranging frequency to 15 Hz
	if err := sensor.SetResolution(vl53l5cx.Resolution8x8); err != nil {
		log.Fatalf("Set resolution failed: %v", err)
	}

	if err := sensor.SetRangingFrequencyHz(10); err != nil {
		log.Fatalf("Set frequency failed: %v", err)
	}

	if err := sensor.StartRanging(); err != nil {
		log.Fatalf("Start ranging failed: %v", err)
	}

	sensor.SetTimeout(500 * time.Millisecond)

	// Read 10 frames
	for i := 0; i < 10; i++ {

		data, err := sensor.ReadFrame()

		if err != nil {
			log.Printf("Read error: %v", err)
			continue
		}

		fmt.Printf("Frame %d, silicon temperature %s\n", i, data.Temperature())

		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				zone := row*8 + col
				fmt.Printf("%5d", data.DistanceMM[data.Index(zone, 0)])
			}
			fmt.Println()
		}
	}

	if err := sensor.StopRanging(); err != nil {
		log.Fatalf("Stop ranging failed: %v", err)
	}
}
