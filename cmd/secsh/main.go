package main

import (
	"github.com/robotalks/nrf91.go/pkg/at"
	"github.com/robotalks/nrf91.go/pkg/cli/sh"

	_ "github.com/robotalks/nrf91.go/pkg/cli/cmds/modem"
)

func init() {
	at.SetupFlags()
}

func main() {
	sh.Main()
}
