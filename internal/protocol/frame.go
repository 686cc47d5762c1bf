package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame returns payload preceded by its int32 little-endian length.
func Frame(payload []byte) []byte {
	out := make([]byte, LengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(out[:LengthPrefixSize], uint32(len(payload)))
	copy(out[LengthPrefixSize:], payload)
	return out
}

// Reassembler turns the byte stream of the reliable channel back into
// payloads. Bytes are buffered until a whole length-delimited frame has
// arrived; partial frames are never delivered.
type Reassembler struct {
	buf      []byte
	maxFrame int
}

// NewReassembler creates a reassembler that rejects frames larger than
// maxFrame bytes. A non-positive maxFrame means MaxFrameSize.
func NewReassembler(maxFrame int) *Reassembler {
	if maxFrame <= 0 {
		maxFrame = MaxFrameSize
	}
	return &Reassembler{maxFrame: maxFrame}
}

// Feed appends stream bytes and calls deliver once per complete frame, in
// order, with a payload the callee may keep. Zero-length frames carry no
// tag and are skipped.
//
// A length prefix that is negative or above the limit means the stream is
// out of sync; Feed returns ErrFrameTooLarge and the connection should be
// closed.
func (a *Reassembler) Feed(p []byte, deliver func(payload []byte)) error {
	a.buf = append(a.buf, p...)

	for len(a.buf) >= LengthPrefixSize {
		length := int32(binary.LittleEndian.Uint32(a.buf[:LengthPrefixSize]))
		if length < 0 || int(length) > a.maxFrame {
			a.Reset()
			return fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
		}

		end := LengthPrefixSize + int(length)
		if len(a.buf) < end {
			return nil
		}

		if length > 0 {
			payload := make([]byte, length)
			copy(payload, a.buf[LengthPrefixSize:end])
			deliver(payload)
		}

		a.buf = a.buf[end:]
	}

	if len(a.buf) == 0 {
		a.buf = nil
	}
	return nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (a *Reassembler) Buffered() int {
	return len(a.buf)
}

// Reset discards any partially received frame.
func (a *Reassembler) Reset() {
	a.buf = nil
}
