package sh

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nrf91.go/pkg/at"
	"github.com/robotalks/nrf91.go/pkg/secfs"
)

// store answers AT%CMNG like a modem.
type store map[string]string

func (st store) key(tag, typ string) string { return typ + "/" + tag }

func (st store) execute(cmd string) string {
	if strings.HasPrefix(cmd, "AT+CMEE=") {
		return "OK\r\n"
	}
	params := at.SplitParams(strings.TrimPrefix(cmd, "AT%CMNG="))
	for len(params) < 4 {
		params = append(params, "")
	}
	switch params[0] {
	case "0":
		st[st.key(params[1], params[2])] = at.Unquote(params[3])
		return "OK\r\n"
	case "1":
		var tags []int
		for k := range st {
			if typ, tag, _ := strings.Cut(k, "/"); typ == params[2] {
				n, _ := strconv.Atoi(tag)
				tags = append(tags, n)
			}
		}
		sort.Ints(tags)
		var b strings.Builder
		for _, tag := range tags {
			fmt.Fprintf(&b, "%%CMNG: %d,%s,\"00\"\r\n", tag, params[2])
		}
		return b.String() + "OK\r\n"
	case "2":
		content, ok := st[st.key(params[1], params[2])]
		if !ok {
			return "+CME ERROR: 513\r\n"
		}
		return fmt.Sprintf("%%CMNG: %s,%s,\"00\",%s\r\nOK\r\n", params[1], params[2], at.Quote(content))
	case "3":
		if _, ok := st[st.key(params[1], params[2])]; !ok {
			return "+CME ERROR: 513\r\n"
		}
		delete(st, st.key(params[1], params[2]))
		return "OK\r\n"
	}
	return "ERROR\r\n"
}

type socket struct {
	st   store
	resp string
}

func (s *socket) Send(cmd string) error        { s.resp = s.st.execute(cmd); return nil }
func (s *socket) Recv(max int) ([]byte, error) { return []byte(s.resp), nil }
func (s *socket) Close() error                 { return nil }

func newTestShell() (*Shell, store) {
	st := make(store)
	dialer := at.DialerFunc(func(context.Context) (at.Socket, error) {
		return &socket{st: st}, nil
	})
	return New(secfs.New(secfs.NewCMNG(dialer))), st
}

func TestNavigation(t *testing.T) {
	s, _ := newTestShell()
	var out bytes.Buffer
	require.NoError(t, s.Pwd(&out, nil))
	require.Equal(t, "/\n", out.String())

	out.Reset()
	require.NoError(t, s.List(&out, nil))
	require.Equal(t, "ca/\npub-cert/\npriv-cert/\npsk/\nidentity/\npub-key/\n", out.String())

	require.NoError(t, s.Chdir(&out, []string{"/ca"}))
	out.Reset()
	require.NoError(t, s.Pwd(&out, nil))
	require.Equal(t, "/ca\n", out.String())

	require.Error(t, s.Chdir(&out, []string{"/nope"}))
	require.NoError(t, s.Chdir(&out, nil))
	out.Reset()
	require.NoError(t, s.Pwd(&out, nil))
	require.Equal(t, "/\n", out.String())
}

func TestWriteCatRemove(t *testing.T) {
	s, st := newTestShell()
	var out bytes.Buffer
	require.NoError(t, s.Write(&out, []string{"/psk/7", "00112233"}))
	require.Equal(t, "00112233", st["3/7"])

	require.NoError(t, s.Cat(&out, []string{"/psk/7"}))
	require.Equal(t, "00112233\n", out.String())

	out.Reset()
	require.NoError(t, s.List(&out, []string{"/psk"}))
	require.Equal(t, "7\n", out.String())

	out.Reset()
	s.OutputJSON = true
	require.NoError(t, s.List(&out, []string{"/psk"}))
	require.JSONEq(t, `["7"]`, out.String())
	s.OutputJSON = false

	require.NoError(t, s.Remove(&out, []string{"/psk/7"}))
	require.Empty(t, st)
	err := s.Cat(&out, []string{"/psk/7"})
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.Error(t, s.Write(&out, []string{"/psk/7"}))
	require.Error(t, s.Cat(&out, nil))
}

func TestPutAndRmdir(t *testing.T) {
	s, st := newTestShell()
	dir := t.TempDir()
	pem := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"
	fn := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(fn, []byte(pem), 0644))

	var out bytes.Buffer
	require.NoError(t, s.Put(&out, []string{"/ca/16842753", fn}))
	require.Equal(t, pem, st["0/16842753"])
	require.NoError(t, s.Cat(&out, []string{"/ca/16842753"}))
	require.Equal(t, pem, out.String())

	require.NoError(t, s.Write(&out, []string{"/ca/2", "x"}))
	require.NoError(t, s.Rmdir(&out, []string{"/ca"}))
	require.Empty(t, st)
}

func TestProvision(t *testing.T) {
	s, st := newTestShell()
	dir := t.TempDir()
	manifest := filepath.Join(dir, "creds.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`credentials:
  - type: ca
    tag: 16842753
    content: root
  - type: psk
    tag: 1
    content: "0011"
`), 0644))
	var out bytes.Buffer
	require.NoError(t, s.Provision(&out, []string{manifest}))
	require.Contains(t, out.String(), "2 credentials provisioned")
	require.Equal(t, "root", st["0/16842753"])
	require.Equal(t, "0011", st["3/1"])
}

func TestRunEvalOnly(t *testing.T) {
	s, _ := newTestShell()
	s.Interactive = false
	require.ErrorIs(t, s.Run(), ErrCommandExpected)
}
