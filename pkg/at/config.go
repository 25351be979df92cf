package at

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config provides options to open the modem channel.
type Config struct {
	Device  string
	Baud    int
	Timeout time.Duration
	Trace   bool
}

var defaultConfig = Config{
	Device:  "/dev/ttyACM0",
	Baud:    115200,
	Timeout: DefaultTimeout,
}

func init() {
	if val := os.Getenv("NRF_AT_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("NRF_AT_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "d", defaultConfig.Device, "Serial device of the modem AT channel.")
	flag.IntVar(&defaultConfig.Baud, "b", defaultConfig.Baud, "Baud rate of the modem AT channel.")
	flag.DurationVar(&defaultConfig.Timeout, "at-timeout", defaultConfig.Timeout, "Timeout of a single AT command.")
	flag.BoolVar(&defaultConfig.Trace, "trace", defaultConfig.Trace, "Trace AT channel traffic.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewDialer creates a ModemDialer using current config.
func (c *Config) NewDialer() *ModemDialer {
	d := NewModemDialer(c.Device, c.Baud)
	d.Timeout = c.Timeout
	d.Trace = c.Trace
	return d
}
