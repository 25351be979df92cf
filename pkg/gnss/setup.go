package gnss

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/robotalks/nrf91.go/pkg/at"
)

// NMEAMask selects the sentences the receiver emits.
type NMEAMask uint16

// NMEA mask flags.
const (
	NMEAGGA NMEAMask = 1 << iota
	NMEAGLL
	NMEAGSA
	NMEAGSV
	NMEARMC

	NMEAAll = NMEAGGA | NMEAGLL | NMEAGSA | NMEAGSV | NMEARMC
)

// Setup commands.
const (
	CmdSystemMode = "AT%XSYSTEMMODE=1,0,1,0"
	CmdMAGPIO     = "AT%XMAGPIO=1,0,0,1,1,1574,1577"
	CmdCOEX0      = "AT%XCOEX0=1,1,1570,1580"
)

// Options are the receiver socket options.
type Options struct {
	// FixRetry is the fix timeout in seconds, 0 retries forever.
	FixRetry uint16
	// FixInterval is the fix interval in seconds, 1 is continuous tracking.
	FixInterval uint16
	NMEAMask    NMEAMask
}

// DefaultOptions tracks continuously and emits all sentences.
var DefaultOptions = Options{FixRetry: 0, FixInterval: 1, NMEAMask: NMEAAll}

// Encode returns the little-endian option values, in the order
// fix retry, fix interval, NMEA mask.
func (o Options) Encode() [3][2]byte {
	var v [3][2]byte
	binary.LittleEndian.PutUint16(v[0][:], o.FixRetry)
	binary.LittleEndian.PutUint16(v[1][:], o.FixInterval)
	binary.LittleEndian.PutUint16(v[2][:], uint16(o.NMEAMask))
	return v
}

func (o Options) String() string {
	return fmt.Sprintf("retry=%ds interval=%ds nmea=%#x", o.FixRetry, o.FixInterval, uint16(o.NMEAMask))
}

// SetupCommands returns the AT commands enabling GNSS.
// coex adds the antenna coexistence setting used on development kits.
func SetupCommands(coex bool) []string {
	cmds := []string{CmdSystemMode, CmdMAGPIO}
	if coex {
		cmds = append(cmds, CmdCOEX0)
	}
	return cmds
}

// Configure sends the setup commands to the modem.
func Configure(ctx context.Context, dialer at.Dialer, coex bool) error {
	_, err := at.Exchange(ctx, dialer, SetupCommands(coex)...)
	if err != nil {
		return fmt.Errorf("gnss setup: %w", err)
	}
	return nil
}
