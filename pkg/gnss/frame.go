package gnss

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// FrameType identifies the payload of a GNSS datagram.
type FrameType byte

// Frame types.
const (
	FramePVT  FrameType = 1
	FrameNMEA FrameType = 2
	FrameAGPS FrameType = 3
)

func (t FrameType) String() string {
	switch t {
	case FramePVT:
		return "PVT"
	case FrameNMEA:
		return "NMEA"
	case FrameAGPS:
		return "AGPS"
	}
	return fmt.Sprintf("frame(%d)", byte(t))
}

const (
	// MaxFrameSize is the largest datagram the receiver produces.
	MaxFrameSize = 580
	// PayloadOffset is where the payload starts after the type byte and padding.
	PayloadOffset = 8
)

// ErrShortFrame indicates a datagram without the payload offset.
var ErrShortFrame = errors.New("gnss: short frame")

// Frame is a decoded GNSS datagram.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// DecodeFrame splits a datagram into type and payload.
// Trailing NUL bytes of NMEA payloads are dropped.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, ErrShortFrame
	}
	f := Frame{Type: FrameType(b[0])}
	if len(b) < PayloadOffset {
		if f.Type == FrameNMEA {
			return f, ErrShortFrame
		}
		return f, nil
	}
	f.Payload = b[PayloadOffset:]
	if f.Type == FrameNMEA {
		if n := bytes.IndexByte(f.Payload, 0); n >= 0 {
			f.Payload = f.Payload[:n]
		}
	}
	return f, nil
}

// NMEA returns the sentence text, empty for other frame types.
func (f Frame) NMEA() string {
	if f.Type != FrameNMEA {
		return ""
	}
	return string(bytes.TrimSpace(f.Payload))
}

// Sentences returns the NMEA sentences of the payload, one per line.
func (f Frame) Sentences() []string {
	var sentences []string
	for _, line := range strings.Split(f.NMEA(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sentences = append(sentences, line)
		}
	}
	return sentences
}
