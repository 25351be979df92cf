package envsense

import (
	"encoding/binary"
	"sync"
)

// MaxBatteryLevel is the full battery percentage.
const MaxBatteryLevel = 100

// TemperatureFromADC converts an 8-bit ADC sample of a 10mV/°C sensor with
// 500mV offset and 1.2V reference into 0.01 °C, rounded down to half degrees.
func TemperatureFromADC(raw int) int16 {
	mv := raw * 1200 / 255
	return int16(floorDiv(mv-500, 5) * 50)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EncodeTemperature encodes the temperature characteristic value.
func EncodeTemperature(centi int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(centi))
	return b
}

// BatteryLevel clamps a percentage to the battery level range.
func BatteryLevel(pct int) byte {
	switch {
	case pct < 0:
		return 0
	case pct > MaxBatteryLevel:
		return MaxBatteryLevel
	}
	return byte(pct)
}

// RainCounter counts rain gauge ticks. The count wraps to 0 once it
// reaches 255, setting the wrap flag until the next Payload.
type RainCounter struct {
	lock  sync.Mutex
	count int
	wrap  bool
}

// Tick counts one bucket tip.
func (r *RainCounter) Tick() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.count++
	if r.count >= 255 {
		r.count = 0
		r.wrap = true
	}
}

// Count returns the current count.
func (r *RainCounter) Count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Payload returns the rainfall characteristic value [count, wrap] and
// clears the wrap flag.
func (r *RainCounter) Payload() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	b := []byte{byte(r.count % 256), 0}
	if r.wrap {
		b[1] = 1
		r.wrap = false
	}
	return b
}
