package main

import (
	"fmt"
	"image/color"
	"machine"
	"runtime/interrupt"

	"libdb.so/modeglow/ledserial"
	"tinygo.org/x/drivers/ws2812"
)

// Device stores the current state of the device.
type Device struct {
	serial SerialReadWriter
	led    ws2812.Device

	ledBuffer []byte
	colors    []color.RGBA
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, ledPin machine.Pin) *Device {
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Device{
		serial: WrapSerial(serial),
		led:    ws2812.New(ledPin),
	}
}

// Run runs the device loop forever.
func (d *Device) Run() {
	for {
		p, err := d.readPacket()
		if err != nil {
			d.logError(err)
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.logError(err)
			continue
		}

		d.sendPacket(ledserial.AckPacket{
			IncomingPacketType: p.Type(),
		})
	}
}

func (d *Device) logError(err error) {
	d.sendPacket(ledserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p ledserial.OutgoingPacket) {
	ledserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) readPacket() (ledserial.IncomingPacket, error) {
	return ledserial.ReadIncomingPacket(d.serial, ledserial.ReadContext{
		LEDBuffer: d.ledBuffer,
	})
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.InitializePacket:
		if p.NumLEDs < 1 {
			return fmt.Errorf("invalid number of LEDs: %d", p.NumLEDs)
		}
		d.ledBuffer = make([]byte, 3*int(p.NumLEDs))
		d.colors = make([]color.RGBA, p.NumLEDs)
		d.flush()

	case ledserial.ClearPacket:
		clear(d.ledBuffer)
		d.flush()

	case ledserial.SetPacket:
		d.flush()

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return nil
}

// flush writes the LED buffer out to the pixels. The WS2812 timing does not
// survive interrupts, so they are disabled while writing.
func (d *Device) flush() {
	for i := range d.colors {
		d.colors[i] = color.RGBA{
			R: d.ledBuffer[3*i+0],
			G: d.ledBuffer[3*i+1],
			B: d.ledBuffer[3*i+2],
			A: 0xFF,
		}
	}

	state := interrupt.Disable()
	d.led.WriteColors(d.colors)
	interrupt.Restore(state)
}
