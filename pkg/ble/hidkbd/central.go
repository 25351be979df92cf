package hidkbd

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"tinygo.org/x/bluetooth"

	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

// DefaultDeviceName is the keyboard the central looks for.
const DefaultDeviceName = "UniversalFoldableKb"

// GATT identifiers.
var (
	ServiceHID = bluetooth.New16BitUUID(0x1812)
	CharReport = bluetooth.New16BitUUID(0x2a4d)
)

// ErrNoReport indicates the device has no HID report characteristic.
var ErrNoReport = errors.New("hidkbd: no report characteristic")

// KeyHandler receives typed runes.
type KeyHandler func(ch rune)

// Central connects to a BLE keyboard and delivers key presses.
type Central struct {
	Adapter *bluetooth.Adapter
	Name    string
	OnKey   KeyHandler
	// OnReport receives raw reports before decoding, optional.
	OnReport func([]byte)

	decoder Decoder
	keyCh   chan rune
}

// NewCentral creates a Central using the default adapter.
func NewCentral(name string, onKey KeyHandler) *Central {
	if name == "" {
		name = DefaultDeviceName
	}
	return &Central{Adapter: bluetooth.DefaultAdapter, Name: name, OnKey: onKey}
}

// Run implements Runnable. It scans until the keyboard is found, subscribes
// to its reports and delivers keys until ctx is done.
func (c *Central) Run(ctx context.Context) error {
	if err := c.Adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	addr, err := c.scan(ctx)
	if err != nil {
		return err
	}
	glog.Infof("connecting %s (%s)", c.Name, addr.String())
	device, err := c.Adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.Name, err)
	}
	defer device.Disconnect()

	srvcs, err := device.DiscoverServices([]bluetooth.UUID{ServiceHID})
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	c.keyCh = make(chan rune, 64)
	var subscribed int
	for _, srvc := range srvcs {
		chars, err := srvc.DiscoverCharacteristics([]bluetooth.UUID{CharReport})
		if err != nil {
			return fmt.Errorf("discover characteristics: %w", err)
		}
		for _, char := range chars {
			if err := char.EnableNotifications(c.handleReport); err != nil {
				glog.Warningf("enable notifications: %v", err)
				continue
			}
			subscribed++
		}
	}
	if subscribed == 0 {
		return ErrNoReport
	}
	glog.Infof("%s connected, %d reports", c.Name, subscribed)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch := <-c.keyCh:
			if c.OnKey != nil {
				c.OnKey(ch)
			}
		}
	}
}

func (c *Central) scan(ctx context.Context) (bluetooth.Address, error) {
	var addr bluetooth.Address
	glog.Infof("scanning for %q", c.Name)
	err := fx.RunWithContextCancel(ctx, func() { c.Adapter.StopScan() }, func() error {
		return c.Adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			glog.V(2).Infof("found %s %d %q", result.Address.String(), result.RSSI, result.LocalName())
			if result.LocalName() == c.Name {
				addr = result.Address
				adapter.StopScan()
			}
		})
	})
	return addr, err
}

// handleReport runs on the BLE stack's goroutine.
func (c *Central) handleReport(buf []byte) {
	if c.OnReport != nil {
		c.OnReport(buf)
	}
	for _, ch := range c.decoder.Decode(buf) {
		select {
		case c.keyCh <- ch:
		default:
			glog.Warningf("key %q dropped", ch)
		}
	}
}
