package protocol

import (
	"encoding/binary"
	"math"

	"github.com/luciancaetano/netsync"
)

// Writer accumulates an outgoing packet. It only appends; use Reader to
// decode.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer with a default initial capacity.
func NewWriter() *Writer {
	return &Writer{
		buf: make([]byte, 0, 256),
	}
}

// NewTagWriter creates a writer whose first field is the packet tag.
func NewTagWriter(tag netsync.Tag) *Writer {
	w := NewWriter()
	w.WriteInt32(int32(tag))
	return w
}

// Reset empties the writer, reusing the underlying buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Bytes returns the encoded bytes. The slice is valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reader returns a read-mode snapshot of the bytes written so far.
// Later writes do not affect it.
func (w *Writer) Reader() *Reader {
	return NewReader(w.buf)
}

// WriteByte appends a single byte.
// Note: This intentionally doesn't return error (unlike io.ByteWriter)
// because the buffer is unbounded and can always append.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes appends raw bytes without a length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteInt16 appends an int16 in little-endian byte order.
func (w *Writer) WriteInt16(v int16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
}

// WriteInt32 appends an int32 in little-endian byte order.
func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteInt64 appends an int64 in little-endian byte order.
func (w *Writer) WriteInt64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

// WriteFloat32 appends a float32 in IEEE 754 format (little-endian).
func (w *Writer) WriteFloat32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// WriteBool appends a boolean as a single byte (0x00 or 0x01).
func (w *Writer) WriteBool(b bool) {
	if b {
		w.buf = append(w.buf, 0x01)
	} else {
		w.buf = append(w.buf, 0x00)
	}
}

// WriteString appends a length-prefixed string.
// Format: int32 byte count + bytes
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteVector3 appends x, y, z.
func (w *Writer) WriteVector3(v netsync.Vector3) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
	w.WriteFloat32(v.Z)
}

// WriteQuaternion appends x, y, z, w.
func (w *Writer) WriteQuaternion(q netsync.Quaternion) {
	w.WriteFloat32(q.X)
	w.WriteFloat32(q.Y)
	w.WriteFloat32(q.Z)
	w.WriteFloat32(q.W)
}

// InsertInt32 prepends v to the buffer.
func (w *Writer) InsertInt32(v int32) {
	w.buf = append(w.buf, 0, 0, 0, 0)
	copy(w.buf[4:], w.buf[:len(w.buf)-4])
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
}

// InsertLengthPrefix prepends the current byte length. Call it once, right
// before handing the packet to the reliable channel.
func (w *Writer) InsertLengthPrefix() {
	w.InsertInt32(int32(len(w.buf)))
}
