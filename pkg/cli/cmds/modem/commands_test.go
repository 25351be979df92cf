package modem

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nrf91.go/pkg/at"
	"github.com/robotalks/nrf91.go/pkg/cli/sh"
	"github.com/robotalks/nrf91.go/pkg/gnss"
	"github.com/robotalks/nrf91.go/pkg/secfs"
)

type echoSocket struct {
	sent *[]string
	resp string
}

func (s *echoSocket) Send(cmd string) error {
	*s.sent = append(*s.sent, cmd)
	s.resp = "OK\r\n"
	if cmd == "AT+CGSN" {
		s.resp = "352656100039703\r\nOK\r\n"
	}
	if cmd == "AT+BAD" {
		s.resp = "ERROR\r\n"
	}
	return nil
}

func (s *echoSocket) Recv(max int) ([]byte, error) { return []byte(s.resp), nil }
func (s *echoSocket) Close() error                 { return nil }

func newShell(sent *[]string) *sh.Shell {
	dialer := at.DialerFunc(func(context.Context) (at.Socket, error) {
		return &echoSocket{sent: sent}, nil
	})
	return sh.New(secfs.New(secfs.NewCMNG(dialer)))
}

func TestCommand(t *testing.T) {
	var sent []string
	s := newShell(&sent)
	var out bytes.Buffer
	require.NoError(t, Command(s, &out, []string{"AT+CGSN"}))
	require.Equal(t, "352656100039703\r\nOK\n", out.String())

	out.Reset()
	require.Error(t, Command(s, &out, []string{"AT", "AT+BAD", "AT+CFUN?"}))
	require.Equal(t, "OK\nERROR\n", out.String())
	require.Equal(t, []string{"AT+CGSN", "AT", "AT+BAD"}, sent)

	require.Error(t, Command(s, &out, nil))
}

func TestGNSSSetup(t *testing.T) {
	var sent []string
	s := newShell(&sent)
	var out bytes.Buffer
	require.NoError(t, GNSSSetup(s, &out, []string{"coex"}))
	require.Equal(t, gnss.SetupCommands(true), sent)
	require.Equal(t, "OK\n", out.String())
}
