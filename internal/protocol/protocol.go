package protocol

import (
	"errors"
	"fmt"
)

const (
	// TagSize is the size of the leading packet tag.
	TagSize = 4

	// LengthPrefixSize is the size of the reliable-channel length prefix.
	LengthPrefixSize = 4

	// MaxFrameSize bounds a single reliable-channel payload.
	MaxFrameSize = 10 * 1024 * 1024 // 10MB
)

// Decoding errors.
var (
	ErrBufferUnderrun  = errors.New("protocol: buffer underrun")
	ErrMalformedString = errors.New("protocol: malformed string")
	ErrFrameTooLarge   = errors.New("protocol: frame length out of range")
)

// BufferUnderrunError reports a read that needed more bytes than the
// packet had left. A string whose declared length does not fit the buffer
// is reported the same way with Malformed set.
type BufferUnderrunError struct {
	Type      string
	Need      int
	Have      int
	Malformed bool
}

func (e *BufferUnderrunError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("protocol: malformed %s: declared length %d, %d bytes left", e.Type, e.Need, e.Have)
	}
	return fmt.Sprintf("protocol: buffer underrun reading %s: need %d bytes, have %d", e.Type, e.Need, e.Have)
}

// Is lets errors.Is match ErrBufferUnderrun, and ErrMalformedString for
// malformed strings.
func (e *BufferUnderrunError) Is(target error) bool {
	if target == ErrBufferUnderrun {
		return true
	}
	return e.Malformed && target == ErrMalformedString
}
