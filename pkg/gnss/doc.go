// Package gnss configures the modem GNSS receiver and decodes its output.
//
// The receiver delivers datagrams, the first byte identifies the payload.
// NMEA datagrams carry the sentence text from offset 8. Sentences are fed
// into a Tracker which keeps the latest position fix.
package gnss
