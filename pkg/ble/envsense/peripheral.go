package envsense

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"tinygo.org/x/bluetooth"

	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

// DefaultName is the advertised local name.
const DefaultName = "micr_rain"

// DefaultPeriod is the measurement period while a central is connected.
const DefaultPeriod = 5 * time.Second

// GATT identifiers.
var (
	ServiceEnvSensing = bluetooth.New16BitUUID(0x181a)
	CharTemperature   = bluetooth.New16BitUUID(0x2a6e)
	CharRainfall      = bluetooth.New16BitUUID(0x2a78)
	ServiceBattery    = bluetooth.New16BitUUID(0x180f)
	CharBatteryLevel  = bluetooth.New16BitUUID(0x2a19)
)

const (
	counterID   = 1
	advInterval = 100 * time.Millisecond
	charFlags   = bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission
)

// Peripheral advertises environmental sensing and battery services.
// Temperature and battery level are refreshed by a periodic counter which
// runs while a central is connected, rainfall on every Tick.
type Peripheral struct {
	Adapter *bluetooth.Adapter
	Name    string
	Sensors Sensors
	Rain    RainCounter

	counter          *fx.Counter
	tempChar         bluetooth.Characteristic
	rainChar         bluetooth.Characteristic
	battChar         bluetooth.Characteristic
	temp, rain, batt io.Writer
}

// NewPeripheral creates a Peripheral on the default adapter.
func NewPeripheral(sensors Sensors, period time.Duration) *Peripheral {
	if period == 0 {
		period = DefaultPeriod
	}
	p := &Peripheral{
		Adapter: bluetooth.DefaultAdapter,
		Name:    DefaultName,
		Sensors: sensors,
	}
	p.counter = fx.NewCounter(counterID, period, fx.Periodic, p.measure)
	p.temp, p.rain, p.batt = &p.tempChar, &p.rainChar, &p.battChar
	return p
}

// Counter returns the measurement counter.
func (p *Peripheral) Counter() *fx.Counter {
	return p.counter
}

// Run implements Runnable.
func (p *Peripheral) Run(ctx context.Context) error {
	p.Adapter.SetConnectHandler(p.handleConnect)
	if err := p.Adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	err := p.Adapter.AddService(&bluetooth.Service{
		UUID: ServiceEnvSensing,
		Characteristics: []bluetooth.CharacteristicConfig{
			{Handle: &p.tempChar, UUID: CharTemperature, Value: EncodeTemperature(0), Flags: charFlags},
			{Handle: &p.rainChar, UUID: CharRainfall, Value: []byte{0, 0}, Flags: charFlags},
		},
	})
	if err != nil {
		return fmt.Errorf("add environmental sensing service: %w", err)
	}
	err = p.Adapter.AddService(&bluetooth.Service{
		UUID: ServiceBattery,
		Characteristics: []bluetooth.CharacteristicConfig{
			{Handle: &p.battChar, UUID: CharBatteryLevel, Value: []byte{MaxBatteryLevel}, Flags: charFlags},
		},
	})
	if err != nil {
		return fmt.Errorf("add battery service: %w", err)
	}
	if err := p.advertise(); err != nil {
		return err
	}
	p.measure(counterID)
	return p.counter.Run(ctx)
}

func (p *Peripheral) advertisementOptions() bluetooth.AdvertisementOptions {
	return bluetooth.AdvertisementOptions{
		LocalName:    p.Name,
		ServiceUUIDs: []bluetooth.UUID{ServiceEnvSensing, ServiceBattery},
		Interval:     bluetooth.NewDuration(advInterval),
	}
}

func (p *Peripheral) advertise() error {
	adv := p.Adapter.DefaultAdvertisement()
	if err := adv.Configure(p.advertisementOptions()); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	glog.Infof("advertising %q", p.Name)
	return nil
}

func (p *Peripheral) handleConnect(device bluetooth.Device, connected bool) {
	p.trackConnection(connected)
	if !connected {
		if err := p.advertise(); err != nil {
			glog.Warningf("restart advertising: %v", err)
		}
	}
}

// trackConnection runs the measurement counter only while connected.
func (p *Peripheral) trackConnection(connected bool) {
	if connected {
		glog.Info("central connected")
		p.counter.Start()
		return
	}
	glog.Info("central disconnected")
	p.counter.Stop()
}

// Tick counts a rain gauge tick and notifies the rainfall value.
func (p *Peripheral) Tick() {
	p.Rain.Tick()
	if _, err := p.rain.Write(p.Rain.Payload()); err != nil {
		glog.Warningf("notify rainfall: %v", err)
	}
}

func (p *Peripheral) measure(int) {
	if p.Sensors == nil {
		return
	}
	if temp, err := p.Sensors.Temperature(); err != nil {
		glog.Warningf("temperature: %v", err)
	} else if _, err := p.temp.Write(EncodeTemperature(temp)); err != nil {
		glog.Warningf("notify temperature: %v", err)
	}
	if level, err := p.Sensors.Battery(); err != nil {
		glog.Warningf("battery: %v", err)
	} else if _, err := p.batt.Write([]byte{level}); err != nil {
		glog.Warningf("notify battery: %v", err)
	}
}
