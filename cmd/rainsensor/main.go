package main

import (
	"flag"

	"github.com/robotalks/nrf91.go/pkg/ble/envsense"
	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

var (
	gaugePin = 18
	noGauge  bool
	period   = envsense.DefaultPeriod
	sensors  = envsense.SysfsSensors{
		ThermalPath: envsense.DefaultThermalPath,
	}
)

func init() {
	flag.IntVar(&gaugePin, "pin", gaugePin, "BCM GPIO pin of the rain gauge.")
	flag.BoolVar(&noGauge, "no-gauge", noGauge, "Run without the rain gauge.")
	flag.DurationVar(&period, "period", period, "Measurement period while connected.")
	flag.StringVar(&sensors.ADCPath, "adc", sensors.ADCPath, "Raw 8-bit ADC sample of the temperature sensor.")
	flag.StringVar(&sensors.ThermalPath, "thermal", sensors.ThermalPath, "Thermal zone temperature in millidegrees.")
	flag.StringVar(&sensors.BatteryPath, "battery", sensors.BatteryPath, "Battery capacity in percent.")
}

func main() {
	flag.Parse()
	p := envsense.NewPeripheral(&sensors, period)
	runners := []fx.Runnable{fx.NamedRun("peripheral", p)}
	if !noGauge {
		runners = append(runners, fx.NamedRun("gauge", &envsense.RainGauge{Pin: gaugePin, OnTick: p.Tick}))
	}
	fx.RunOrFail(runners...)
}
