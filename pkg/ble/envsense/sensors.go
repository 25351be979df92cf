package envsense

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Sensors provide the measurements advertised by the peripheral.
type Sensors interface {
	// Temperature returns 0.01 °C.
	Temperature() (int16, error)
	// Battery returns the level in percent.
	Battery() (byte, error)
}

// Default sysfs paths.
const (
	DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"
	DefaultBatteryPath = "/sys/class/power_supply/BAT0/capacity"
)

// ErrNoSensor indicates no source is configured for a measurement.
var ErrNoSensor = errors.New("envsense: no sensor")

// SysfsSensors reads measurements from sysfs attribute files.
type SysfsSensors struct {
	// ADCPath is a raw 8-bit ADC sample of an analog temperature sensor,
	// e.g. an IIO in_voltageN_raw. It's preferred over ThermalPath.
	ADCPath string
	// ThermalPath reports millidegrees Celsius.
	ThermalPath string
	// BatteryPath reports a capacity percentage, full battery if empty.
	BatteryPath string
}

// Temperature implements Sensors.
func (s *SysfsSensors) Temperature() (int16, error) {
	if s.ADCPath != "" {
		raw, err := readInt(s.ADCPath)
		if err != nil {
			return 0, err
		}
		return TemperatureFromADC(raw), nil
	}
	if s.ThermalPath == "" {
		return 0, ErrNoSensor
	}
	milli, err := readInt(s.ThermalPath)
	if err != nil {
		return 0, err
	}
	return int16(milli / 10), nil
}

// Battery implements Sensors.
func (s *SysfsSensors) Battery() (byte, error) {
	if s.BatteryPath == "" {
		return MaxBatteryLevel, nil
	}
	pct, err := readInt(s.BatteryPath)
	if err != nil {
		return 0, err
	}
	return BatteryLevel(pct), nil
}

func readInt(fn string) (int, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
