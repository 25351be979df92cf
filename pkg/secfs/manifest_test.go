package secfs

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.pem"), []byte("-----CA-----"), 0o600))
	manifest := filepath.Join(dir, "creds.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
credentials:
  - type: ca
    tag: 16842753
    file: ca.pem
  - type: psk
    tag: 42
    content: "00112233"
  - type: 4
    tag: 42
    content: device-1
`), 0o600))

	m, err := LoadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, m.Credentials, 3)
	require.Equal(t, Credential{Type: RootCA, Tag: 16842753, File: "ca.pem", Content: "-----CA-----"}, m.Credentials[0])
	require.Equal(t, PSK, m.Credentials[1].Type)
	require.Equal(t, PSKIdentity, m.Credentials[2].Type)

	modem := newFakeModem()
	n, err := m.Apply(context.Background(), NewCMNG(modem))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	content, ok := modem.get(RootCA, 16842753)
	require.True(t, ok)
	require.Equal(t, "-----CA-----", content)
}

func TestParseManifestErrors(t *testing.T) {
	_, err := ParseManifest([]byte("credentials:\n  - type: bogus\n    tag: 1\n    content: x\n"))
	require.Error(t, err)
	_, err = ParseManifest([]byte("credentials:\n  - type: ca\n    tag: 1\n"))
	require.Error(t, err)
	_, err = ParseManifest([]byte("credentials:\n  - type: ca\n    tag: 2147483648\n    content: x\n"))
	require.Error(t, err)
}

func TestManifestApplyStops(t *testing.T) {
	m := &Manifest{Credentials: []Credential{
		{Type: RootCA, Tag: 1, Content: "a"},
		{Type: RootCA, Tag: 2, Content: "b"},
	}}
	modem := newFakeModem()
	modem.cme = 515
	n, err := m.Apply(context.Background(), NewCMNG(modem))
	require.Zero(t, n)
	requireErrno(t, err, syscall.ENOSPC)
}
