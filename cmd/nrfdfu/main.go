package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/robotalks/nrf91.go/pkg/dfu"
	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

const usage = `
Usage:

    nrfdfu [options] <binfile> <dev> <baudrate>

Example:

    nrfdfu build-pca10090/firmware.bin /dev/ttyACM0 1000000
`

var fragmentSize = dfu.DefaultFragmentSize

func init() {
	flag.IntVar(&fragmentSize, "fragment", fragmentSize, "Fragment size, at most 4096.")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		fmt.Fprintln(flag.CommandLine.Output(), "\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	if flag.NArg() < 3 {
		flag.Usage()
		os.Exit(1)
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}
	baud, err := strconv.Atoi(flag.Arg(2))
	if err != nil {
		log.Fatalf("invalid baudrate %q", flag.Arg(2))
	}
	port, err := dfu.OpenSerial(flag.Arg(1), baud)
	if err != nil {
		log.Fatalln(err)
	}
	defer port.Close()

	fmt.Println(len(image))
	fmt.Println("Waiting for DFU")
	u := dfu.NewUploader(port)
	u.FragmentSize = fragmentSize
	u.Progress = func(acked, total int) {
		fmt.Printf("%d/%d acked\n", acked, total)
	}
	runner := fx.NewRunner().HandleSignals()
	if err := u.Upload(runner.Context, image); err != nil {
		port.Close()
		log.Fatalln(err)
	}
	fmt.Println("DFU done")
}
