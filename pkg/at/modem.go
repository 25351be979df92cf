package at

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/golang/glog"
	wat "github.com/warthog618/modem/at"
	"github.com/warthog618/modem/serial"
	"github.com/warthog618/modem/trace"
)

// DefaultTimeout is the default time a modem command may take.
const DefaultTimeout = 2 * time.Second

// ModemDialer opens Sockets on a modem attached to a serial port.
// The port is opened on first use and shared by all Sockets, exchanges
// are serialized: a Socket holds the channel until it's closed.
type ModemDialer struct {
	Device  string
	Baud    int
	Timeout time.Duration
	Trace   bool

	// Open overrides how the serial port is opened.
	Open func(device string, baud int) (io.ReadWriteCloser, error)

	lock    sync.Mutex
	busy    chan struct{}
	port    io.ReadWriteCloser
	capture *rawCapture
	modem   *wat.AT
}

// NewModemDialer creates a ModemDialer.
func NewModemDialer(device string, baud int) *ModemDialer {
	return &ModemDialer{Device: device, Baud: baud, Timeout: DefaultTimeout}
}

func openSerial(device string, baud int) (io.ReadWriteCloser, error) {
	return serial.New(serial.WithPort(device), serial.WithBaud(baud))
}

// Dial implements Dialer.
func (d *ModemDialer) Dial(ctx context.Context) (Socket, error) {
	d.lock.Lock()
	if d.busy == nil {
		d.busy = make(chan struct{}, 1)
	}
	busy := d.busy
	d.lock.Unlock()

	select {
	case busy <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	modem, capture, err := d.channel()
	if err != nil {
		<-busy
		return nil, err
	}
	return &modemSocket{modem: modem, capture: capture, release: func() { <-busy }}, nil
}

func (d *ModemDialer) channel() (*wat.AT, *rawCapture, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.modem != nil {
		return d.modem, d.capture, nil
	}
	open := d.Open
	if open == nil {
		open = openSerial
	}
	port, err := open(d.Device, d.Baud)
	if err != nil {
		return nil, nil, err
	}
	capture := &rawCapture{ReadWriter: port}
	var mio io.ReadWriter = capture
	if d.Trace {
		mio = trace.New(capture)
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	d.port, d.capture = port, capture
	d.modem = wat.New(mio, wat.WithTimeout(timeout))
	glog.Infof("modem channel opened on %s", d.Device)
	return d.modem, d.capture, nil
}

// Close closes the serial port.
func (d *ModemDialer) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port, d.capture, d.modem = nil, nil, nil
	return err
}

// rawCapture records the bytes read from the port. The modem channel
// splits responses into lines and drops empty ones, which changes
// multi-line content like PEM certificates.
type rawCapture struct {
	io.ReadWriter

	lock sync.Mutex
	buf  bytes.Buffer
}

func (c *rawCapture) Read(p []byte) (int, error) {
	n, err := c.ReadWriter.Read(p)
	if n > 0 {
		c.lock.Lock()
		c.buf.Write(p[:n])
		c.lock.Unlock()
	}
	return n, err
}

func (c *rawCapture) reset() {
	c.lock.Lock()
	c.buf.Reset()
	c.lock.Unlock()
}

func (c *rawCapture) take() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	b := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return b
}

type modemSocket struct {
	modem   *wat.AT
	capture *rawCapture
	resp    []byte
	release func()
	closed  bool
}

var errSocketClosed = errors.New("at: socket closed")

func (s *modemSocket) Send(cmd string) error {
	if s.closed {
		return errSocketClosed
	}
	body := commandBody(cmd)
	if s.capture != nil {
		s.capture.reset()
	}
	info, err := s.modem.Command(body)
	if raw, ok := s.rawResponse(body); ok {
		s.resp = raw
	} else {
		s.resp = []byte(responseText(info, err))
	}
	if err != nil && !isResultError(err) {
		return err
	}
	return nil
}

func (s *modemSocket) Recv(max int) ([]byte, error) {
	if s.closed {
		return nil, errSocketClosed
	}
	resp := s.resp
	if max >= 0 && len(resp) > max {
		resp = resp[:max]
	}
	s.resp = s.resp[len(resp):]
	return resp, nil
}

func (s *modemSocket) Close() error {
	if s.closed {
		return errSocketClosed
	}
	s.closed = true
	s.release()
	return nil
}

func (s *modemSocket) rawResponse(body string) ([]byte, bool) {
	if s.capture == nil {
		return nil, false
	}
	return rawResponse(s.capture.take(), body)
}

// rawResponse cuts the response of a command out of the bytes received
// while it ran: leading blank lines and the command echo are skipped, the
// response ends with the line holding the final result code.
func rawResponse(b []byte, body string) ([]byte, bool) {
	start, pos := -1, 0
	for pos < len(b) {
		end := bytes.IndexByte(b[pos:], '\n')
		if end < 0 {
			return nil, false
		}
		end += pos + 1
		line := strings.TrimSpace(string(b[pos:end]))
		if start < 0 {
			if line == "" || strings.EqualFold(line, "AT"+body) {
				pos = end
				continue
			}
			start = pos
		}
		if isFinalResult(line) {
			return b[start:end], true
		}
		pos = end
	}
	return nil, false
}

func isFinalResult(line string) bool {
	return line == strings.TrimSpace(ResultOK) ||
		line == strings.TrimSpace(ResultError) ||
		strings.HasPrefix(line, CMEPrefix)
}

// commandBody strips the "AT" prefix, the modem channel adds it.
func commandBody(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if len(cmd) >= 2 && strings.EqualFold(cmd[:2], "AT") {
		return cmd[2:]
	}
	return cmd
}

func isResultError(err error) bool {
	var cme wat.CMEError
	return errors.Is(err, wat.ErrError) || errors.As(err, &cme)
}

// responseText rebuilds the raw text the modem returned for a command.
func responseText(info []string, err error) string {
	var b strings.Builder
	for _, line := range info {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	var cme wat.CMEError
	switch {
	case err == nil:
		b.WriteString(ResultOK)
	case errors.As(err, &cme):
		b.WriteString(CMEPrefix + " " + trailingDigits(cme.Error()) + "\r\n")
	case errors.Is(err, wat.ErrError):
		b.WriteString(ResultError)
	}
	return b.String()
}

func trailingDigits(s string) string {
	end := len(s)
	start := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) + 1
	return s[start:end]
}
