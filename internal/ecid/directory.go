package ecid

import "io"

const (
	recordSize     = 8
	terminatorSize = 4
	osidFlag       = 0x80
)

// WalkState is the state of a Walker.
type WalkState int

const (
	StateScanning WalkState = iota
	StateTerminated
	StateFailed
	StateExhausted
)

func (s WalkState) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Walker iterates the records of a chunk directory. It reads every byte at
// most once and never moves backwards.
type Walker struct {
	buf       []byte
	off       int
	state     WalkState
	count     int
	err       error
	truncated *TruncatedDirectoryError
}

// NewWalker returns a Walker positioned at the directory starting at offset.
func NewWalker(buf []byte, offset int) *Walker {
	return &Walker{buf: buf, off: offset}
}

func (w *Walker) State() WalkState { return w.state }

// Count returns the number of chunk records returned so far.
func (w *Walker) Count() int { return w.count }

// Truncated returns the truncation report if the directory ran off the end
// of the buffer, or nil.
func (w *Walker) Truncated() *TruncatedDirectoryError { return w.truncated }

// Next returns the next chunk record. It returns io.EOF after the terminator
// or when the buffer is exhausted, and a *MissingOsidFlagError or
// *BoundsError for a malformed record. Once Next has returned an error every
// later call returns the same error.
func (w *Walker) Next() (ChunkRecord, error) {
	switch w.state {
	case StateTerminated, StateExhausted:
		return ChunkRecord{}, io.EOF
	case StateFailed:
		return ChunkRecord{}, w.err
	}

	remaining := len(w.buf) - w.off
	if remaining < terminatorSize {
		return ChunkRecord{}, w.exhaust(remaining)
	}
	rec := ChunkRecord{Offset: w.off}
	rec.OSID, _ = ReadU8(w.buf, w.off)
	rec.Size, _ = ReadU24LE(w.buf, w.off+1)
	if rec.IsTerminator() {
		w.off += terminatorSize
		w.state = StateTerminated
		return ChunkRecord{}, io.EOF
	}
	if remaining < recordSize {
		return ChunkRecord{}, w.exhaust(remaining)
	}
	rec.Address, _ = ReadU32LE(w.buf, w.off+4)
	w.off += recordSize

	if rec.OSID&osidFlag == 0 {
		return ChunkRecord{}, w.fail(&MissingOsidFlagError{Offset: rec.Offset, OSID: rec.OSID})
	}
	if rec.End() > uint64(len(w.buf)) {
		return ChunkRecord{}, w.fail(&BoundsError{Offset: int(rec.Address), Width: int(rec.Size), Len: len(w.buf)})
	}
	w.count++
	return rec, nil
}

func (w *Walker) exhaust(remaining int) error {
	w.state = StateExhausted
	w.truncated = &TruncatedDirectoryError{Offset: w.off, Remaining: remaining, Chunks: w.count}
	return io.EOF
}

func (w *Walker) fail(err error) error {
	w.state = StateFailed
	w.err = err
	return err
}

// ChunkData returns the bytes of rec within buf.
func ChunkData(buf []byte, rec ChunkRecord) ([]byte, error) {
	if rec.End() > uint64(len(buf)) {
		return nil, &BoundsError{Offset: int(rec.Address), Width: int(rec.Size), Len: len(buf)}
	}
	return buf[rec.Address:rec.End()], nil
}
