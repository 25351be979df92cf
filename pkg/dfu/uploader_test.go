package dfu

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// bootloader emulates the device side of the exchange.
type bootloader struct {
	conn      net.Conn
	echo      byte
	eraseFail bool
	noTrailer bool
	image     bytes.Buffer
	fragSize  int
	acks      int
}

func (b *bootloader) run() error {
	defer b.conn.Close()
	if _, err := b.conn.Write([]byte("boot noise\r\n" + Banner)); err != nil {
		return err
	}
	var c [1]byte
	if _, err := io.ReadFull(b.conn, c[:]); err != nil {
		return err
	}
	echo := c[0]
	if b.echo != 0 {
		echo = b.echo
	}
	if _, err := b.conn.Write([]byte{echo}); err != nil {
		return err
	}
	if echo != c[0] {
		return nil
	}
	var hdr [6]byte
	if _, err := io.ReadFull(b.conn, hdr[:]); err != nil {
		return err
	}
	imageLen := int(binary.LittleEndian.Uint32(hdr[:4]))
	b.fragSize = int(int16(binary.LittleEndian.Uint16(hdr[4:])))
	switch {
	case b.eraseFail && b.noTrailer:
		_, err := b.conn.Write([]byte{ReplyEraseFail})
		return err
	case b.eraseFail:
		_, err := b.conn.Write([]byte{ReplyEraseFail, ReplyDone})
		return err
	case imageLen > 0:
		b.conn.Write([]byte{ReplyErased})
	default:
		b.conn.Write([]byte{ReplyNoErase})
	}
	buf := make([]byte, b.fragSize)
	for remain := imageLen; remain > 0; {
		n := b.fragSize
		if remain < n {
			n = remain
		}
		if _, err := io.ReadFull(b.conn, buf[:n]); err != nil {
			return err
		}
		b.image.Write(buf[:n])
		remain -= n
		b.acks++
		if _, err := b.conn.Write([]byte{ReplyAck}); err != nil {
			return err
		}
	}
	_, err := b.conn.Write([]byte{ReplyDone})
	return err
}

func startBootloader(t *testing.T, b *bootloader) (net.Conn, chan error) {
	host, dev := net.Pipe()
	b.conn = dev
	errCh := make(chan error, 1)
	go func() { errCh <- b.run() }()
	t.Cleanup(func() { host.Close() })
	return host, errCh
}

func testImage(n int) []byte {
	image := make([]byte, n)
	for i := range image {
		image[i] = byte(i * 7)
	}
	return image
}

func TestUpload(t *testing.T) {
	testCases := []struct {
		name  string
		size  int
		frags int
	}{
		{"empty", 0, 0},
		{"single partial", 100, 1},
		{"exact fragments", 2 * DefaultFragmentSize, 2},
		{"with leftover", 2*DefaultFragmentSize + 904, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev := &bootloader{}
			host, errCh := startBootloader(t, dev)
			var progress []int
			var totals []int
			u := NewUploader(host)
			u.Progress = func(acked, total int) {
				progress = append(progress, acked)
				totals = append(totals, total)
			}
			image := testImage(tc.size)
			require.NoError(t, u.Upload(context.Background(), image))
			require.NoError(t, <-errCh)
			require.Equal(t, DefaultFragmentSize, dev.fragSize)
			require.Equal(t, tc.frags, dev.acks)
			require.Len(t, progress, tc.frags)
			for n, acked := range progress {
				require.Equal(t, n+1, acked)
				require.Equal(t, tc.frags, totals[n])
			}
			require.True(t, bytes.Equal(image, dev.image.Bytes()))
		})
	}
}

func TestUploadSmallFragments(t *testing.T) {
	dev := &bootloader{}
	host, errCh := startBootloader(t, dev)
	u := NewUploader(host)
	u.FragmentSize = 1000
	image := testImage(4500)
	require.NoError(t, u.Upload(context.Background(), image))
	require.NoError(t, <-errCh)
	require.Equal(t, 1000, dev.fragSize)
	require.Equal(t, 5, dev.acks)
	require.Equal(t, image, dev.image.Bytes())
}

func TestUploadEraseFailed(t *testing.T) {
	host, errCh := startBootloader(t, &bootloader{eraseFail: true})
	err := NewUploader(host).Upload(context.Background(), testImage(10))
	require.ErrorIs(t, err, ErrEraseFailed)
	require.NoError(t, <-errCh)
}

func TestUploadEraseFailedNoTrailer(t *testing.T) {
	host, errCh := startBootloader(t, &bootloader{eraseFail: true, noTrailer: true})
	err := NewUploader(host).Upload(context.Background(), testImage(10))
	require.ErrorIs(t, err, ErrEraseFailed)
	require.NoError(t, <-errCh)
}

func TestUploadBadEcho(t *testing.T) {
	host, _ := startBootloader(t, &bootloader{echo: 'X'})
	err := NewUploader(host).Upload(context.Background(), testImage(10))
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, StageSync, perr.Stage)
	require.Equal(t, byte('X'), perr.Got)
}

func TestUploadInvalidFragmentSize(t *testing.T) {
	u := NewUploader(nil)
	u.FragmentSize = DefaultFragmentSize + 1
	require.ErrorIs(t, u.Upload(context.Background(), nil), ErrFragmentSize)
}

func TestUploadCancel(t *testing.T) {
	host, dev := net.Pipe()
	defer dev.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewUploader(host).Upload(ctx, testImage(10))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
