// Package hidkbd is a BLE central for HID keyboards, decoding input
// reports into runes.
package hidkbd
