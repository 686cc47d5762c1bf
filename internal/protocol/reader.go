package protocol

import (
	"encoding/binary"
	"math"

	"github.com/luciancaetano/netsync"
)

// Reader decodes a received packet. It holds its own copy of the bytes and
// a cursor that only moves forward; every Read has a Peek twin that
// decodes the same value without moving it.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a reader over a copy of data.
func NewReader(data []byte) *Reader {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Reader{buf: buf}
}

// Len returns the total packet size.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Unread returns the number of bytes left after the cursor.
func (r *Reader) Unread() int {
	return len(r.buf) - r.pos
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}

// Bytes returns the whole packet. Do not modify.
func (r *Reader) Bytes() []byte {
	return r.buf
}

// next returns the n bytes at the cursor, advancing past them when advance is set.
func (r *Reader) next(typ string, n int, advance bool) ([]byte, error) {
	if n < 0 || n > r.Unread() {
		return nil, &BufferUnderrunError{Type: typ, Need: n, Have: r.Unread()}
	}
	b := r.buf[r.pos : r.pos+n]
	if advance {
		r.pos += n
	}
	return b, nil
}

// peek runs read and puts the cursor back where it was.
func peek[T any](r *Reader, read func() (T, error)) (T, error) {
	pos := r.pos
	v, err := read()
	r.pos = pos
	return v, err
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.next("byte", 1, true)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// PeekByte decodes a byte without advancing.
func (r *Reader) PeekByte() (byte, error) {
	return peek(r, r.ReadByte)
}

// ReadBytes reads exactly n bytes and returns a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.next("bytes", n, true)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// PeekBytes returns a copy of the next n bytes without advancing.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	return peek(r, func() ([]byte, error) { return r.ReadBytes(n) })
}

// ReadInt16 reads an int16 in little-endian byte order.
func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.next("int16", 2, true)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// PeekInt16 decodes an int16 without advancing.
func (r *Reader) PeekInt16() (int16, error) {
	return peek(r, r.ReadInt16)
}

// ReadInt32 reads an int32 in little-endian byte order.
func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.next("int32", 4, true)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// PeekInt32 decodes an int32 without advancing.
func (r *Reader) PeekInt32() (int32, error) {
	return peek(r, r.ReadInt32)
}

// ReadInt64 reads an int64 in little-endian byte order.
func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.next("int64", 8, true)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// PeekInt64 decodes an int64 without advancing.
func (r *Reader) PeekInt64() (int64, error) {
	return peek(r, r.ReadInt64)
}

// ReadFloat32 reads a float32 in IEEE 754 format (little-endian).
func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.next("float32", 4, true)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// PeekFloat32 decodes a float32 without advancing.
func (r *Reader) PeekFloat32() (float32, error) {
	return peek(r, r.ReadFloat32)
}

// ReadBool reads a boolean. Any non-zero byte is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.next("bool", 1, true)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// PeekBool decodes a boolean without advancing.
func (r *Reader) PeekBool() (bool, error) {
	return peek(r, r.ReadBool)
}

// ReadString reads an int32 byte length followed by that many bytes.
// The declared length is authoritative: if it does not fit in what is left
// the read fails and the cursor stays before the length field.
func (r *Reader) ReadString() (string, error) {
	start := r.pos
	length, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if length < 0 || int(length) > r.Unread() {
		have := r.Unread()
		r.pos = start
		return "", &BufferUnderrunError{Type: "string", Need: int(length), Have: have, Malformed: true}
	}
	b, _ := r.next("string", int(length), true)
	return string(b), nil
}

// PeekString decodes a string without advancing.
func (r *Reader) PeekString() (string, error) {
	return peek(r, r.ReadString)
}

// ReadVector3 reads x, y, z. On failure the cursor is left where it was.
func (r *Reader) ReadVector3() (netsync.Vector3, error) {
	b, err := r.next("Vector3", 12, true)
	if err != nil {
		return netsync.Vector3{}, err
	}
	return netsync.Vector3{
		X: float32At(b, 0),
		Y: float32At(b, 4),
		Z: float32At(b, 8),
	}, nil
}

// PeekVector3 decodes a Vector3 without advancing.
func (r *Reader) PeekVector3() (netsync.Vector3, error) {
	return peek(r, r.ReadVector3)
}

// ReadQuaternion reads x, y, z, w. On failure the cursor is left where it was.
func (r *Reader) ReadQuaternion() (netsync.Quaternion, error) {
	b, err := r.next("Quaternion", 16, true)
	if err != nil {
		return netsync.Quaternion{}, err
	}
	return netsync.Quaternion{
		X: float32At(b, 0),
		Y: float32At(b, 4),
		Z: float32At(b, 8),
		W: float32At(b, 12),
	}, nil
}

// PeekQuaternion decodes a Quaternion without advancing.
func (r *Reader) PeekQuaternion() (netsync.Quaternion, error) {
	return peek(r, r.ReadQuaternion)
}

// ReadTag reads the packet tag.
func (r *Reader) ReadTag() (netsync.Tag, error) {
	b, err := r.next("tag", TagSize, true)
	if err != nil {
		return 0, err
	}
	return netsync.Tag(int32(binary.LittleEndian.Uint32(b))), nil
}

// PeekTag decodes the packet tag without advancing, so a dispatcher can
// route on it and let the handler start right after it with ReadTag.
func (r *Reader) PeekTag() (netsync.Tag, error) {
	return peek(r, r.ReadTag)
}

func float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
}
