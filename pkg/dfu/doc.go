// Package dfu uploads firmware images to a secure bootloader over a serial
// line.
package dfu

// The bootloader announces itself with a banner line and then runs a fixed
// exchange, every step acknowledged by a single byte:
//
//	device: "Secureboot TDFU\r\n"
//	host:   'S'                        device echoes 'S'
//	host:   <uint32 LE image length><int16 LE fragment size>
//	device: 'E' pages erased, 'P' nothing to erase, 'F' erase failed
//	host:   fragment                   device: 'A'   (repeated)
//	host:   leftover, if any           device: 'A'
//	device: 'D'
//
// There is no checksum and no resumption: a failed upload is restarted
// from the banner.
