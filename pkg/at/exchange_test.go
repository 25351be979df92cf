package at

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptSocket struct {
	replies map[string]string
	sent    []string
	last    string
	closed  bool
}

func (s *scriptSocket) Send(cmd string) error {
	s.sent = append(s.sent, cmd)
	s.last = s.replies[cmd]
	return nil
}

func (s *scriptSocket) Recv(max int) ([]byte, error) {
	resp := s.last
	if len(resp) > max {
		resp = resp[:max]
	}
	return []byte(resp), nil
}

func (s *scriptSocket) Close() error {
	s.closed = true
	return nil
}

func TestExchange(t *testing.T) {
	sock := &scriptSocket{replies: map[string]string{
		"AT%XSYSTEMMODE=1,0,1,0": "OK\r\n",
		"AT+CFUN=1":              "+CME ERROR: 518\r\n",
	}}
	d := DialerFunc(func(context.Context) (Socket, error) { return sock, nil })

	resps, err := Exchange(context.Background(), d, "AT%XSYSTEMMODE=1,0,1,0")
	require.NoError(t, err)
	require.Equal(t, []string{"OK\r\n"}, resps)
	require.True(t, sock.closed)

	_, err = Exchange(context.Background(), d, "AT+CFUN=1", "AT%XSYSTEMMODE=1,0,1,0")
	var cme *CMEError
	require.True(t, errors.As(err, &cme))
	require.Equal(t, 518, cme.Code)
	require.Equal(t, []string{"AT%XSYSTEMMODE=1,0,1,0", "AT+CFUN=1"}, sock.sent)

	_, err = Exchange(context.Background(), d, "AT+UNKNOWN")
	require.Error(t, err)
}
