package avi

import "encoding/binary"

// ByteCursor is the sole reader every parsing routine in this package
// goes through: peek/read/skip plus little-endian integer helpers
// over an Input. It never holds file-specific state itself (no
// *os.File, no io.ReadSeeker) so it works identically for files,
// in-memory buffers and network sources.
type ByteCursor struct {
	in Input
}

// NewByteCursor wraps in.
func NewByteCursor(in Input) *ByteCursor {
	return &ByteCursor{in: in}
}

// Position returns the current read offset.
func (c *ByteCursor) Position() int64 { return c.in.Position() }

// Length returns the total input length, or -1 if unknown.
func (c *ByteCursor) Length() int64 { return c.in.Length() }

// Peek returns the next n bytes without advancing the read cursor.
func (c *ByteCursor) Peek(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := c.in.PeekFully(buf); err != nil {
		return nil, err
	}
	c.in.ResetPeekPosition()
	return buf, nil
}

// Read consumes and returns the next n bytes.
func (c *ByteCursor) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := c.in.ReadFully(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Skip discards the next n bytes.
func (c *ByteCursor) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	return c.in.SkipFully(n)
}

// SkipToAlign skips one pad byte if the current position is odd, per
// the dword-alignment rule every AVI chunk obeys.
func (c *ByteCursor) SkipToAlign() error {
	if c.Position()%2 != 0 {
		return c.Skip(1)
	}
	return nil
}

func (c *ByteCursor) ReadU8() (uint8, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *ByteCursor) ReadU16() (uint16, error) {
	b, err := c.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *ByteCursor) ReadU24() (uint32, error) {
	b, err := c.Read(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (c *ByteCursor) ReadU32() (uint32, error) {
	b, err := c.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *ByteCursor) ReadU64() (uint64, error) {
	b, err := c.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *ByteCursor) ReadI32() (int32, error) {
	u, err := c.ReadU32()
	return int32(u), err
}

func (c *ByteCursor) ReadFourCC() (FourCC, error) {
	u, err := c.ReadU32()
	return FourCC(u), err
}
