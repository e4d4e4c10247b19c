package ecid

import "bytes"

func need(buf []byte, offset, width int) error {
	if offset < 0 || width < 0 || offset > len(buf)-width {
		return &BoundsError{Offset: offset, Width: width, Len: len(buf)}
	}
	return nil
}

// ReadU8 returns the byte at offset.
func ReadU8(buf []byte, offset int) (uint8, error) {
	if err := need(buf, offset, 1); err != nil {
		return 0, err
	}
	return buf[offset], nil
}

// ReadU16LE returns the little-endian 16-bit value at offset.
func ReadU16LE(buf []byte, offset int) (uint32, error) {
	if err := need(buf, offset, 2); err != nil {
		return 0, err
	}
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8, nil
}

// ReadU24LE returns the little-endian 24-bit value at offset.
func ReadU24LE(buf []byte, offset int) (uint32, error) {
	if err := need(buf, offset, 3); err != nil {
		return 0, err
	}
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 | uint32(buf[offset+2])<<16, nil
}

// ReadU32LE returns the little-endian 32-bit value at offset.
func ReadU32LE(buf []byte, offset int) (uint32, error) {
	if err := need(buf, offset, 4); err != nil {
		return 0, err
	}
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24, nil
}

// ReadCString returns the NUL-terminated string starting at offset. A string
// without a terminator runs to the end of buf.
func ReadCString(buf []byte, offset int) (string, error) {
	if err := need(buf, offset, 1); err != nil {
		return "", err
	}
	tail := buf[offset:]
	if end := bytes.IndexByte(tail, 0); end >= 0 {
		tail = tail[:end]
	}
	return string(tail), nil
}
