package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/nrf91.go/pkg/at"
	fx "github.com/robotalks/nrf91.go/pkg/framework"
	"github.com/robotalks/nrf91.go/pkg/gnss"
	"github.com/robotalks/nrf91.go/pkg/shadow"
)

var (
	nmeaDevice   string
	nmeaBaud     = gnss.DefaultBaud
	datagrams    string
	setup        bool
	coex         bool
	printNMEA    bool
	report       bool
	reportPeriod = 30 * time.Second
)

func init() {
	at.SetupFlags()
	shadow.SetupFlags()
	flag.StringVar(&nmeaDevice, "nmea", nmeaDevice, "Serial device printing NMEA sentences, default the AT device.")
	flag.IntVar(&nmeaBaud, "nmea-baud", nmeaBaud, "Baud rate of the NMEA device.")
	flag.StringVar(&datagrams, "datagrams", datagrams, "Receive raw GNSS datagrams on this UDP address instead of reading the NMEA device.")
	flag.BoolVar(&setup, "setup", setup, "Send GNSS setup AT commands first.")
	flag.BoolVar(&coex, "coex", coex, "Include antenna coexistence setting in setup.")
	flag.BoolVar(&printNMEA, "print", printNMEA, "Print every NMEA sentence.")
	flag.BoolVar(&report, "report", report, "Report fixes to the device shadow.")
	flag.DurationVar(&reportPeriod, "report-period", reportPeriod, "Minimum interval between shadow reports.")
}

type reportedState struct {
	GNSS gnss.Fix `json:"gnss"`
}

func main() {
	flag.Parse()

	atConf := at.NewConfig()
	runner := fx.NewRunner().HandleSignals()
	if setup {
		dialer := atConf.NewDialer()
		if err := gnss.Configure(runner.Context, dialer, coex); err != nil {
			log.Fatalln(err)
		}
		dialer.Close()
		glog.Info("GNSS configured")
	}

	var (
		src    gnss.Source
		closer io.Closer
	)
	if datagrams != "" {
		conn, err := gnss.ListenDatagrams(datagrams)
		if err != nil {
			log.Fatalln(err)
		}
		glog.Infof("receiving GNSS datagrams on %s", conn.LocalAddr())
		src, closer = gnss.DatagramSource(conn), conn
	} else {
		dev := nmeaDevice
		if dev == "" {
			dev = atConf.Device
		}
		port, err := gnss.OpenSerial(dev, nmeaBaud)
		if err != nil {
			log.Fatalln(err)
		}
		src, closer = gnss.LineSource(port), port
	}
	reader := gnss.NewReader(src)
	reader.Closer = closer
	if printNMEA {
		reader.OnSentence = func(s string) { fmt.Printf("NMEA:%s\n", s) }
	}

	var lastReport time.Time
	fixCh := make(chan gnss.Fix, 1)
	reader.OnFix = func(fix gnss.Fix) {
		glog.Infof("fix %s", fix)
		if report && time.Since(lastReport) >= reportPeriod {
			lastReport = time.Now()
			select {
			case fixCh <- fix:
			default:
			}
		}
	}

	runners := []fx.Runnable{fx.NamedRun("gnss", reader)}
	if report {
		client, err := shadow.NewConfig().NewClient()
		if err != nil {
			log.Fatalln(err)
		}
		runners = append(runners,
			fx.NamedRun("shadow", client),
			fx.NamedRun("report", reporter(client, fixCh)))
	}
	if err := runner.Go(runners...).Wait(); err != nil {
		log.Fatalln(err)
	}
}

func reporter(client *shadow.Client, fixCh <-chan gnss.Fix) fx.RunFunc {
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fix := <-fixCh:
				doc, err := client.Report(ctx, &reportedState{GNSS: fix})
				if err != nil {
					glog.Warningf("report: %v", err)
					continue
				}
				glog.V(2).Infof("reported, version %d", doc.Version)
			}
		}
	}
}
