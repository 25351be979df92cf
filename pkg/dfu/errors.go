package dfu

import (
	"errors"
	"fmt"
)

var (
	// ErrEraseFailed indicates the bootloader couldn't erase flash pages.
	ErrEraseFailed = errors.New("dfu: erase failed")
	// ErrImageTooLarge indicates the image length doesn't fit the header.
	ErrImageTooLarge = errors.New("dfu: image too large")
	// ErrFragmentSize indicates an unsupported fragment size.
	ErrFragmentSize = errors.New("dfu: invalid fragment size")
)

// Stage identifies the step of the upload.
type Stage int

// Upload stages.
const (
	StageSync Stage = iota
	StageErase
	StageFragment
	StageDone
)

var stageNames = [...]string{"sync", "erase", "fragment", "done"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ProtocolError reports an unexpected reply from the bootloader.
type ProtocolError struct {
	Stage    Stage
	Fragment int
	Got      byte
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Stage == StageFragment {
		return fmt.Sprintf("dfu: fragment %d: unexpected reply %q", e.Fragment, e.Got)
	}
	return fmt.Sprintf("dfu: %s: unexpected reply %q", e.Stage, e.Got)
}
