// Command ledserial is the firmware driving the pixel. It reads ledserial
// packets from the USB serial port and writes them out to a WS2812 pixel.
//
// The output pin is set at build time:
//
//	tinygo flash -target esp32-coreboard-v2 -ldflags "-X main.ledPin=27" ./cmd/ledserial
package main

import (
	"machine"
	"strconv"
)

// ledPin is the GPIO number of the pixel's data line.
var ledPin = "27"

func main() {
	pin, err := strconv.Atoi(ledPin)
	if err != nil {
		panic("invalid ledPin " + ledPin)
	}

	NewDevice(machine.Serial, machine.Pin(pin)).Run()
}
