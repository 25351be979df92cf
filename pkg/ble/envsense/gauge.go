package envsense

import (
	"context"
	"time"

	"github.com/golang/glog"
	rpio "github.com/stianeikeland/go-rpio/v4"
)

// DefaultPollInterval is how often the edge detection status is checked.
const DefaultPollInterval = 10 * time.Millisecond

// RainGauge detects tipping bucket pulses on a pulled-up GPIO input,
// one falling edge per tip.
type RainGauge struct {
	// Pin is the BCM pin number.
	Pin          int
	PollInterval time.Duration
	OnTick       func()
}

// Run implements Runnable.
func (g *RainGauge) Run(ctx context.Context) error {
	if err := rpio.Open(); err != nil {
		return err
	}
	defer rpio.Close()

	pin := rpio.Pin(g.Pin)
	pin.Input()
	pin.PullUp()
	pin.Detect(rpio.FallEdge)
	defer pin.Detect(rpio.NoEdge)
	glog.Infof("rain gauge on GPIO%d", g.Pin)

	interval := g.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if pin.EdgeDetected() {
				glog.V(2).Info("rain tick")
				if g.OnTick != nil {
					g.OnTick()
				}
			}
		}
	}
}
