package ecid

import (
	"errors"
	"fmt"
)

// Process exit codes reported by the decode command.
const (
	ExitOK            = 0
	ExitUsage         = -1
	ExitIO            = -2
	ExitNotConformant = -3
	ExitReservedByte0 = -4
	ExitReservedByte1 = -5
	ExitReservedByte2 = -6
	ExitMissingOSID   = -7
	ExitBounds        = -8
)

// FormatError reports a header whose reserved bits are not zero. Decoding
// stops at the first offending byte.
type FormatError struct {
	Byte   int
	Value  uint8
	Code   int
	Reason string
}

func (err *FormatError) Error() string {
	return fmt.Sprintf("ecid: header byte %d (&%02X): %s", err.Byte, err.Value, err.Reason)
}

func (err *FormatError) Is(target error) bool {
	_, ok := target.(*FormatError)
	return ok
}

// MissingOsidFlagError reports a directory record whose OSID byte does not
// have bit 7 set. The directory walk cannot continue past it.
type MissingOsidFlagError struct {
	Offset int
	OSID   uint8
}

func (err *MissingOsidFlagError) Error() string {
	return fmt.Sprintf("ecid: OSID MSB not set, ofs=&%X (osid &%02X)", err.Offset, err.OSID)
}

func (err *MissingOsidFlagError) Is(target error) bool {
	_, ok := target.(*MissingOsidFlagError)
	return ok
}

// TruncatedDirectoryError reports a chunk directory that ran into the end of
// the buffer before its terminator. It is informational: chunks decoded
// before the end remain valid.
type TruncatedDirectoryError struct {
	Offset    int
	Remaining int
	Chunks    int
}

func (err *TruncatedDirectoryError) Error() string {
	return fmt.Sprintf("ecid: chunk directory truncated at &%X (%d bytes left, %d chunks read)", err.Offset, err.Remaining, err.Chunks)
}

func (err *TruncatedDirectoryError) Is(target error) bool {
	_, ok := target.(*TruncatedDirectoryError)
	return ok
}

// BoundsError reports a read of Width bytes at Offset that does not fit in a
// buffer of Len bytes.
type BoundsError struct {
	Offset int
	Width  int
	Len    int
}

func (err *BoundsError) Error() string {
	return fmt.Sprintf("ecid: read of %d bytes at &%X exceeds buffer of %d bytes", err.Width, err.Offset, err.Len)
}

func (err *BoundsError) Is(target error) bool {
	_, ok := target.(*BoundsError)
	return ok
}

// ExitCode maps a decode error to the exit status of the decode command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ferr *FormatError
	if errors.As(err, &ferr) {
		return ferr.Code
	}
	var merr *MissingOsidFlagError
	if errors.As(err, &merr) {
		return ExitMissingOSID
	}
	var berr *BoundsError
	if errors.As(err, &berr) {
		return ExitBounds
	}
	return ExitIO
}
