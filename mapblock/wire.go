package mapblock

import (
	"bytes"
	"encoding/binary"
)

// reader wraps a byte slice with a cursor, providing the big-endian
// fixed-width and length-prefixed-string reads the wire format needs,
// translating any short-buffer condition into BadData rather than a raw
// io.ErrUnexpectedEOF, matching the original's try_read_n discipline.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

// remaining returns the number of unread bytes.
func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

// tryReadN returns the next n bytes, or BadData if fewer than n remain.
func (r *reader) tryReadN(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, newErr(BadData, "expected %d bytes, only %d remain", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.tryReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.tryReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.tryReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readI32() (int32, error) {
	v, err := r.readU32()
	return int32(v), err
}

// readString16 reads a u16 length prefix followed by that many bytes.
func (r *reader) readString16() ([]byte, error) {
	n, err := r.readU16()
	if err != nil {
		return nil, err
	}
	b, err := r.tryReadN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// readString32 reads a u32 length prefix followed by that many bytes.
func (r *reader) readString32() ([]byte, error) {
	n, err := r.readU32()
	if err != nil {
		return nil, err
	}
	b, err := r.tryReadN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// writer accumulates encoded bytes. Writes panic on overflow the way the
// original's write_string16/write_string32 panic when a length doesn't
// fit its prefix width: that is a programmer error (data built in
// violation of the format's own limits), not a recoverable runtime
// condition.
type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) writeU8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) writeU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) writeU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) writeI32(v int32) {
	w.writeU32(uint32(v))
}

func (w *writer) writeBytes(b []byte) {
	w.buf.Write(b)
}

func (w *writer) writeString16(s []byte) {
	if len(s) > 0xFFFF {
		panic("mapblock: string16 payload exceeds u16 length prefix")
	}
	w.writeU16(uint16(len(s)))
	w.writeBytes(s)
}

func (w *writer) writeString32(s []byte) {
	if uint64(len(s)) > 0xFFFFFFFF {
		panic("mapblock: string32 payload exceeds u32 length prefix")
	}
	w.writeU32(uint32(len(s)))
	w.writeBytes(s)
}

func (w *writer) Bytes() []byte {
	return w.buf.Bytes()
}

// capAlloc bounds a capacity hint taken from attacker-controlled input so
// a too-large declared count cannot force a huge allocation before the
// length mismatch is actually detected during reading.
func capAlloc(count, max int) int {
	if count < 0 {
		return 0
	}
	if count > max {
		return max
	}
	return count
}
