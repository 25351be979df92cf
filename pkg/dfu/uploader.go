package dfu

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

// Protocol constants.
const (
	Banner              = "Secureboot TDFU\r\n"
	StartMarker    byte = 'S'
	ReplyErased    byte = 'E'
	ReplyNoErase   byte = 'P'
	ReplyEraseFail byte = 'F'
	ReplyAck       byte = 'A'
	ReplyDone      byte = 'D'

	// DefaultFragmentSize matches the bootloader receive buffer, which is
	// also the largest fragment it accepts.
	DefaultFragmentSize = 4096
)

// ProgressFunc reports acknowledged fragments out of total.
type ProgressFunc func(acked, total int)

// Uploader runs the upload exchange over a serial port.
type Uploader struct {
	Port         io.ReadWriter
	FragmentSize int
	Progress     ProgressFunc

	reader *bufio.Reader
}

// NewUploader creates an Uploader with the default fragment size.
func NewUploader(port io.ReadWriter) *Uploader {
	return &Uploader{Port: port, FragmentSize: DefaultFragmentSize}
}

// Upload waits for the bootloader banner and transfers the image.
// When the port is an io.Closer, it's closed if ctx is canceled as that's
// the only way to unblock a pending read.
func (u *Uploader) Upload(ctx context.Context, image []byte) error {
	fragSize := u.FragmentSize
	if fragSize == 0 {
		fragSize = DefaultFragmentSize
	}
	if fragSize < 0 || fragSize > DefaultFragmentSize {
		return ErrFragmentSize
	}
	if uint64(len(image)) > math.MaxUint32 {
		return ErrImageTooLarge
	}
	u.reader = bufio.NewReader(u.Port)
	var onCancel func()
	if closer, ok := u.Port.(io.Closer); ok {
		onCancel = func() { closer.Close() }
	}
	return fx.RunWithContextCancel(ctx, onCancel, func() error {
		return u.upload(image, fragSize)
	})
}

func (u *Uploader) upload(image []byte, fragSize int) error {
	glog.Info("waiting for DFU")
	if err := u.waitBanner(); err != nil {
		return err
	}
	glog.Info("DFU started")
	if err := u.sync(); err != nil {
		return err
	}
	if err := u.writeHeader(uint32(len(image)), int16(fragSize)); err != nil {
		return err
	}

	reply, err := u.readByte()
	if err != nil {
		return err
	}
	switch reply {
	case ReplyErased, ReplyNoErase:
		glog.V(2).Infof("erase reply %q", reply)
	case ReplyEraseFail:
		// the bootloader still finishes with 'D'.
		if done, err := u.readByte(); err != nil {
			glog.V(2).Infof("erase failed, no trailing reply: %v", err)
		} else if done != ReplyDone {
			glog.V(2).Infof("erase failed, trailing reply %q", done)
		}
		return ErrEraseFailed
	default:
		return &ProtocolError{Stage: StageErase, Got: reply}
	}

	total := (len(image) + fragSize - 1) / fragSize
	for n := 0; n < total; n++ {
		end := (n + 1) * fragSize
		if end > len(image) {
			end = len(image)
		}
		if _, err := u.Port.Write(image[n*fragSize : end]); err != nil {
			return err
		}
		ack, err := u.readByte()
		if err != nil {
			return err
		}
		if ack != ReplyAck {
			return &ProtocolError{Stage: StageFragment, Fragment: n, Got: ack}
		}
		glog.V(2).Infof("fragment %d/%d acked", n+1, total)
		if u.Progress != nil {
			u.Progress(n+1, total)
		}
	}

	done, err := u.readByte()
	if err != nil {
		return err
	}
	if done != ReplyDone {
		return &ProtocolError{Stage: StageDone, Got: done}
	}
	glog.Infof("DFU done, %d bytes in %d fragments", len(image), total)
	return nil
}

func (u *Uploader) waitBanner() error {
	for {
		line, err := u.reader.ReadString('\n')
		if strings.Contains(line, Banner) {
			return nil
		}
		if err != nil {
			return err
		}
		glog.V(2).Infof("ignored: %q", line)
	}
}

func (u *Uploader) sync() error {
	if _, err := u.Port.Write([]byte{StartMarker}); err != nil {
		return err
	}
	echo, err := u.readByte()
	if err != nil {
		return err
	}
	if echo != StartMarker {
		return &ProtocolError{Stage: StageSync, Got: echo}
	}
	return nil
}

func (u *Uploader) writeHeader(imageLen uint32, fragSize int16) error {
	var hdr [6]byte
	binary.LittleEndian.PutUint32(hdr[:4], imageLen)
	binary.LittleEndian.PutUint16(hdr[4:], uint16(fragSize))
	_, err := u.Port.Write(hdr[:])
	return err
}

func (u *Uploader) readByte() (byte, error) {
	b, err := u.reader.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return b, err
}
