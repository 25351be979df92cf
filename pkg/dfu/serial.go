package dfu

import (
	"github.com/tarm/serial"
)

// DefaultBaud is the bootloader's default baud rate.
const DefaultBaud = 1000000

// OpenSerial opens the serial port the bootloader listens on.
// Reads block until data arrives, cancel an upload by closing the port.
func OpenSerial(name string, baud int) (*serial.Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}
