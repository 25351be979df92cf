package secfs

import (
	"context"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang/glog"

	"github.com/robotalks/nrf91.go/pkg/at"
)

type opcode int

const (
	opWrite opcode = iota
	opList
	opRead
	opDelete
)

var opNames = [...]string{"write", "list", "read", "delete"}

func (o opcode) String() string {
	return opNames[o]
}

const (
	// MaxCommandLen is the longest command the AT socket accepts.
	MaxCommandLen = 4096
	// maxResultLen bounds the response to AT+CMEE.
	maxResultLen = 20

	cmeeOn  = "AT+CMEE=1"
	cmeeOff = "AT+CMEE=0"

	cmngPrefix     = "AT%CMNG="
	cmngInfoPrefix = "%CMNG:"
)

// CMNG manages credentials with AT%CMNG.
type CMNG struct {
	Dialer at.Dialer
}

// NewCMNG creates a CMNG using the dialer for every query.
func NewCMNG(d at.Dialer) *CMNG {
	return &CMNG{Dialer: d}
}

// command formats AT%CMNG, trailing empty parameters are left out.
func command(op opcode, tag string, typ CredType, content string) string {
	params := []string{strconv.Itoa(int(op)), tag, strconv.Itoa(int(typ)), content}
	for len(params) > 1 && params[len(params)-1] == "" {
		params = params[:len(params)-1]
	}
	return cmngPrefix + strings.Join(params, ",")
}

// query runs one AT%CMNG exchange with numeric CME errors enabled and
// returns the response text before the OK result code. An AT socket which
// doesn't acknowledge AT+CMEE fails the query with EFBIG, the same errno
// as an oversized command.
func (c *CMNG) query(ctx context.Context, op opcode, tag string, typ CredType, content string) (string, error) {
	cmd := command(op, tag, typ, content)
	if len(cmd) > MaxCommandLen {
		return "", newError(op.String(), tag, syscall.EFBIG)
	}

	s, err := c.Dialer.Dial(ctx)
	if err != nil {
		glog.Errorf("CMNG %s: dial: %v", op, err)
		return "", newError(op.String(), tag, syscall.EIO)
	}
	defer s.Close()

	if !c.roundTrip(s, cmeeOn, maxResultLen) {
		return "", newError(op.String(), tag, syscall.EFBIG)
	}

	glog.V(2).Infof("CMNG %s type=%s tag=%s", op, typ, tag)
	var resp string
	if err := s.Send(cmd); err != nil {
		glog.Errorf("CMNG %s: send: %v", op, err)
		return "", newError(op.String(), tag, syscall.EIO)
	}
	buf, err := s.Recv(at.MaxResponse)
	if err != nil {
		glog.Errorf("CMNG %s: recv: %v", op, err)
		return "", newError(op.String(), tag, syscall.EIO)
	}
	resp = string(buf)

	if !c.roundTrip(s, cmeeOff, maxResultLen) {
		return "", newError(op.String(), tag, syscall.EFBIG)
	}

	if code, ok := at.ParseCMEError(resp); ok {
		glog.V(2).Infof("CMNG %s: CME error %d", op, code)
		return "", newError(op.String(), tag, errnoFromCME(code))
	}
	body, ok := at.Body(resp)
	if !ok {
		return "", newError(op.String(), tag, syscall.EIO)
	}
	return body, nil
}

func (c *CMNG) roundTrip(s at.Socket, cmd string, max int) bool {
	if err := s.Send(cmd); err != nil {
		glog.Errorf("%s: %v", cmd, err)
		return false
	}
	buf, err := s.Recv(max)
	if err != nil {
		glog.Errorf("%s: %v", cmd, err)
		return false
	}
	return at.HasOK(string(buf))
}

// List returns the security tags stored for a credential type.
func (c *CMNG) List(ctx context.Context, typ CredType) ([]SecTag, error) {
	body, err := c.query(ctx, opList, "", typ, "")
	if err != nil {
		return nil, err
	}
	var tags []SecTag
	for _, line := range at.Lines(body) {
		if !strings.HasPrefix(line, cmngInfoPrefix) {
			continue
		}
		params := at.SplitParams(line)
		// the modem lists every type when asked for one on some firmware.
		if len(params) > 1 && params[1] != strconv.Itoa(int(typ)) {
			continue
		}
		tag, err := ParseSecTag(params[0])
		if err != nil {
			glog.Warningf("CMNG list: bad entry %q", line)
			continue
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Read returns the stored content of a credential. Note the modem refuses
// to read back private keys.
func (c *CMNG) Read(ctx context.Context, typ CredType, tag SecTag) (string, error) {
	body, err := c.query(ctx, opRead, tag.String(), typ, "")
	if err != nil {
		return "", err
	}
	// PEM content spans lines, so the body is split as a whole.
	body = strings.TrimSpace(body)
	if body == "" {
		return "", nil
	}
	params := at.SplitParams(body)
	return at.Unquote(params[len(params)-1]), nil
}

// Write stores content under the tag and returns the number of bytes
// written.
func (c *CMNG) Write(ctx context.Context, typ CredType, tag SecTag, content string) (int, error) {
	if _, err := c.query(ctx, opWrite, tag.String(), typ, at.Quote(content)); err != nil {
		return 0, err
	}
	return len(content), nil
}

// Delete removes a credential.
func (c *CMNG) Delete(ctx context.Context, typ CredType, tag SecTag) error {
	_, err := c.query(ctx, opDelete, tag.String(), typ, "")
	return err
}

// Exists tells whether a credential is stored under the tag.
func (c *CMNG) Exists(ctx context.Context, typ CredType, tag SecTag) (bool, error) {
	tags, err := c.List(ctx, typ)
	if err != nil {
		return false, err
	}
	for _, t := range tags {
		if t == tag {
			return true, nil
		}
	}
	return false, nil
}
