package gnss

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/golang/glog"
	"github.com/tarm/serial"

	fx "github.com/robotalks/nrf91.go/pkg/framework"
)

// DefaultBaud is the console baud rate of the device.
const DefaultBaud = 115200

// Source produces NMEA sentences.
type Source interface {
	Next() (string, error)
}

// SourceFunc is func form of Source.
type SourceFunc func() (string, error)

// Next implements Source.
func (f SourceFunc) Next() (string, error) {
	return f()
}

// LineSource reads sentences from text lines, e.g. a device console
// printing "NMEA:$GPGGA,...". Anything before the '$' is dropped, lines
// without a sentence are skipped.
func LineSource(r io.Reader) Source {
	scanner := bufio.NewScanner(r)
	return SourceFunc(func() (string, error) {
		for scanner.Scan() {
			line := scanner.Text()
			if n := strings.IndexByte(line, '$'); n >= 0 {
				return strings.TrimSpace(line[n:]), nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	})
}

// PacketReader reads one whole datagram per call, as net.PacketConn does.
// Byte streams like serial ports don't preserve datagram boundaries and
// can't be used here.
type PacketReader interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
}

// DatagramSource reads GNSS datagrams and yields the NMEA sentences of
// their payloads. Other frame types are skipped. A closed connection ends
// the source.
func DatagramSource(conn PacketReader) Source {
	buf := make([]byte, MaxFrameSize)
	var pending []string
	return SourceFunc(func() (string, error) {
		for len(pending) == 0 {
			n, _, err := conn.ReadFrom(buf)
			if n > 0 {
				f, ferr := DecodeFrame(buf[:n])
				if ferr != nil {
					glog.V(2).Infof("drop frame: %v", ferr)
				} else {
					pending = f.Sentences()
				}
			}
			if len(pending) > 0 {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				return "", io.EOF
			}
			if err != nil {
				return "", err
			}
		}
		s := pending[0]
		pending = pending[1:]
		return s, nil
	})
}

// ListenDatagrams opens a UDP socket receiving GNSS datagrams.
func ListenDatagrams(addr string) (net.PacketConn, error) {
	return net.ListenPacket("udp", addr)
}

// OpenSerial opens the device console.
func OpenSerial(name string, baud int) (*serial.Port, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}

// Reader feeds sentences from a source into a tracker.
type Reader struct {
	Source  Source
	Tracker *Tracker
	// Closer unblocks Source when Run is canceled.
	Closer io.Closer

	OnSentence func(string)
	OnFix      func(Fix)
}

// NewReader creates a Reader with its own Tracker.
func NewReader(src Source) *Reader {
	r := &Reader{Source: src, Tracker: &Tracker{}}
	if c, ok := src.(io.Closer); ok {
		r.Closer = c
	}
	return r
}

// Run implements Runnable. It returns nil when the source ends.
// Closer, if set, is closed when Run returns.
func (r *Reader) Run(ctx context.Context) error {
	if r.Closer == nil {
		return fx.RunWithContextCancel(ctx, nil, r.loop)
	}
	return fx.RunWithContextCloser(ctx, r.Closer, r.loop)
}

func (r *Reader) loop() error {
	if r.Tracker == nil {
		r.Tracker = &Tracker{}
	}
	for {
		s, err := r.Source.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if r.OnSentence != nil {
			r.OnSentence(s)
		}
		updated, err := r.Tracker.Feed(s)
		if err != nil {
			glog.V(2).Infof("NMEA %q: %v", s, err)
			continue
		}
		if updated && r.OnFix != nil {
			r.OnFix(r.Tracker.Fix())
		}
	}
}
