package envsense

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

func TestTemperatureFromADC(t *testing.T) {
	testCases := []struct {
		raw   int
		centi int16
	}{
		{0, -5000},
		{10, -4550},
		{106, -50},
		{107, 0},
		{128, 1000},
		{130, 1100},
		{255, 7000},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.centi, TemperatureFromADC(tc.raw), "raw=%d", tc.raw)
	}
	require.Equal(t, []byte{0xe8, 0x03}, EncodeTemperature(1000))
	require.Equal(t, []byte{0x78, 0xec}, EncodeTemperature(-5000))
}

func TestBatteryLevel(t *testing.T) {
	require.Equal(t, byte(0), BatteryLevel(-3))
	require.Equal(t, byte(42), BatteryLevel(42))
	require.Equal(t, byte(100), BatteryLevel(100))
	require.Equal(t, byte(100), BatteryLevel(130))
}

func TestRainCounter(t *testing.T) {
	var r RainCounter
	require.Equal(t, []byte{0, 0}, r.Payload())
	r.Tick()
	r.Tick()
	require.Equal(t, []byte{2, 0}, r.Payload())
	for i := 2; i < 254; i++ {
		r.Tick()
	}
	require.Equal(t, 254, r.Count())
	r.Tick()
	require.Equal(t, 0, r.Count())
	require.Equal(t, []byte{0, 1}, r.Payload())
	require.Equal(t, []byte{0, 0}, r.Payload())
	r.Tick()
	require.Equal(t, []byte{1, 0}, r.Payload())
}

func writeFile(t *testing.T, dir, name, content string) string {
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestSysfsSensors(t *testing.T) {
	dir := t.TempDir()
	s := &SysfsSensors{}
	_, err := s.Temperature()
	require.ErrorIs(t, err, ErrNoSensor)
	level, err := s.Battery()
	require.NoError(t, err)
	require.Equal(t, byte(MaxBatteryLevel), level)

	s.ThermalPath = writeFile(t, dir, "temp", "48312\n")
	temp, err := s.Temperature()
	require.NoError(t, err)
	require.Equal(t, int16(4831), temp)

	s.ADCPath = writeFile(t, dir, "adc", "128\n")
	temp, err = s.Temperature()
	require.NoError(t, err)
	require.Equal(t, int16(1000), temp)

	s.BatteryPath = writeFile(t, dir, "capacity", "101\n")
	level, err = s.Battery()
	require.NoError(t, err)
	require.Equal(t, byte(100), level)

	s.BatteryPath = filepath.Join(dir, "missing")
	_, err = s.Battery()
	require.ErrorIs(t, err, os.ErrNotExist)
}

type fakeSensors struct {
	temp    int16
	battery byte
	err     error
}

func (s *fakeSensors) Temperature() (int16, error) { return s.temp, s.err }
func (s *fakeSensors) Battery() (byte, error)      { return s.battery, s.err }

func TestPeripheralUpdates(t *testing.T) {
	sensors := &fakeSensors{temp: 2150, battery: 87}
	p := NewPeripheral(sensors, 0)
	require.Equal(t, DefaultPeriod, p.Counter().Period)
	var temp, rain, batt bytes.Buffer
	p.temp, p.rain, p.batt = &temp, &rain, &batt

	p.measure(counterID)
	require.Equal(t, EncodeTemperature(2150), temp.Bytes())
	require.Equal(t, []byte{87}, batt.Bytes())

	sensors.err = errors.New("no sensor")
	temp.Reset()
	batt.Reset()
	p.measure(counterID)
	require.Zero(t, temp.Len())
	require.Zero(t, batt.Len())

	p.Tick()
	p.Tick()
	require.Equal(t, []byte{1, 0, 2, 0}, rain.Bytes())
}

func TestPeripheralCounter(t *testing.T) {
	p := NewPeripheral(&fakeSensors{battery: 50}, time.Millisecond)
	require.False(t, p.Counter().Running())
	p.trackConnection(true)
	require.True(t, p.Counter().Running())
	p.trackConnection(false)
	require.False(t, p.Counter().Running())
}

func TestAdvertisementOptions(t *testing.T) {
	p := NewPeripheral(&SysfsSensors{}, 0)
	opts := p.advertisementOptions()
	require.Equal(t, DefaultName, opts.LocalName)
	require.Equal(t, []bluetooth.UUID{ServiceEnvSensing, ServiceBattery}, opts.ServiceUUIDs)
	require.Equal(t, bluetooth.NewDuration(100*time.Millisecond), opts.Interval)
}
