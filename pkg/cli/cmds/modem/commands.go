package modem

import (
	"fmt"
	"io"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/nrf91.go/pkg/at"
	"github.com/robotalks/nrf91.go/pkg/cli/sh"
	"github.com/robotalks/nrf91.go/pkg/gnss"
)

// Command sends raw AT commands, one per argument, and prints responses.
func Command(s *sh.Shell, w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: at COMMAND...")
	}
	resps, err := at.Exchange(s.Ctx, s.FS.CMNG.Dialer, args...)
	for _, resp := range resps {
		fmt.Fprint(w, strings.TrimRight(resp, "\r\n")+"\n")
	}
	return err
}

// GNSSSetup enables the GNSS receiver, "coex" adds the antenna
// coexistence setting of development kits.
func GNSSSetup(s *sh.Shell, w io.Writer, args []string) error {
	coex := len(args) > 0 && args[0] == "coex"
	if err := gnss.Configure(s.Ctx, s.FS.CMNG.Dialer, coex); err != nil {
		return err
	}
	fmt.Fprintln(w, "OK")
	return nil
}

var (
	// ATCmd exposes raw AT commands.
	ATCmd = ishell.Cmd{
		Name: "at",
		Help: "COMMAND...",
		Func: sh.Action(Command),
	}

	// GNSSSetupCmd configures the modem for GNSS.
	GNSSSetupCmd = ishell.Cmd{
		Name:    "gnss.setup",
		Aliases: []string{"gnss"},
		Help:    "[coex]",
		Func:    sh.Action(GNSSSetup),
	}
)

func init() {
	sh.AddCmds(&ATCmd, &GNSSSetupCmd)
}
