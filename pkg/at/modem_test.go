package at

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// scanCommands splits the command stream on CR or LF.
func scanCommands(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// serveModem answers commands from a fixed reply table, unknown commands
// get ERROR.
func serveModem(conn net.Conn, replies map[string]string) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Split(scanCommands)
	for scanner.Scan() {
		cmd := scanner.Text()
		if !strings.HasPrefix(strings.ToUpper(cmd), "AT") {
			continue
		}
		reply, ok := replies[cmd]
		if !ok {
			reply = ResultError
		}
		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
	}
}

func pipeModem(replies map[string]string) func(string, int) (io.ReadWriteCloser, error) {
	return func(string, int) (io.ReadWriteCloser, error) {
		host, dev := net.Pipe()
		go serveModem(dev, replies)
		return host, nil
	}
}

const testPEM = "-----BEGIN CERTIFICATE-----\nMIIB\n\nQUJD\n-----END CERTIFICATE-----\n"

func TestModemDialerRawResponse(t *testing.T) {
	replies := map[string]string{
		"AT%CMNG=2,16842753,0": "%CMNG: 16842753,0,\"A1B2\",\"" + testPEM + "\"\r\nOK\r\n",
		"AT+CFUN?":             "+CFUN: 1\r\nOK\r\n",
		"AT%CMNG=2,7,0":        "+CME ERROR: 513\r\n",
	}
	d := NewModemDialer("modem", 115200)
	d.Open = pipeModem(replies)
	defer d.Close()

	s, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer s.Close()

	for _, cmd := range []string{"AT%CMNG=2,16842753,0", "AT+CFUN?", "AT%CMNG=2,7,0"} {
		require.NoError(t, s.Send(cmd), cmd)
		resp, err := s.Recv(MaxResponse)
		require.NoError(t, err, cmd)
		require.Equal(t, replies[cmd], string(resp), cmd)
	}

	require.NoError(t, s.Send("AT+UNKNOWN"))
	resp, err := s.Recv(MaxResponse)
	require.NoError(t, err)
	require.Equal(t, ResultError, string(resp))
}

func TestModemDialerRecvLimit(t *testing.T) {
	d := NewModemDialer("modem", 115200)
	d.Open = pipeModem(map[string]string{"AT+CMEE=1": ResultOK})
	defer d.Close()

	s, err := d.Dial(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Send("AT+CMEE=1"))
	resp, err := s.Recv(2)
	require.NoError(t, err)
	require.Equal(t, "OK", string(resp))
	resp, err = s.Recv(20)
	require.NoError(t, err)
	require.Equal(t, "\r\n", string(resp))
	require.NoError(t, s.Close())
	require.Error(t, s.Close())
}

func TestRawResponse(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		out  string
		ok   bool
	}{
		{"plain", "OK\r\n", "OK\r\n", true},
		{"echo", "AT+CFUN?\r\r\n+CFUN: 1\r\nOK\r\n", "+CFUN: 1\r\nOK\r\n", true},
		{"leading blank", "\r\n+CFUN: 1\r\n\r\nOK\r\n", "+CFUN: 1\r\n\r\nOK\r\n", true},
		{"trailing noise", "+CME ERROR: 514\r\n%XSIM: 1\r\n", "+CME ERROR: 514\r\n", true},
		{"multi-line", "%CMNG: 1,0,\"a\n\nb\n\"\r\nOK\r\n", "%CMNG: 1,0,\"a\n\nb\n\"\r\nOK\r\n", true},
		{"incomplete", "+CFUN: 1\r\n", "", false},
		{"unterminated", "+CFUN: 1\r\nOK", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := rawResponse([]byte(tc.in), "+CFUN?")
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.out, string(out))
		})
	}
}
