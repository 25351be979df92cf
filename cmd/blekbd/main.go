package main

import (
	"flag"
	"fmt"

	"github.com/robotalks/nrf91.go/pkg/ble/hidkbd"
	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

var (
	deviceName  = hidkbd.DefaultDeviceName
	dumpReports bool
)

func init() {
	flag.StringVar(&deviceName, "name", deviceName, "Local name of the keyboard.")
	flag.BoolVar(&dumpReports, "dump", dumpReports, "Print raw input reports.")
}

func main() {
	flag.Parse()
	central := hidkbd.NewCentral(deviceName, func(ch rune) {
		fmt.Printf("char: %q\n", ch)
	})
	if dumpReports {
		central.OnReport = func(report []byte) {
			fmt.Printf("report: % x\n", report)
		}
	}
	fx.RunOrFail(fx.NamedRun("keyboard", central))
}
