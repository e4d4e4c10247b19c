package romsum

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	// LengthOffset is the offset of the ROM length word in the image header.
	LengthOffset = 4
	// TrailerSize covers the checksum word and the two CRC words.
	TrailerSize = 12
	// MinImageSize is the smallest image with a length word and a trailer.
	MinImageSize = LengthOffset + 4 + TrailerSize

	readBufferSize = 64 * 1024
)

// Patch field names, as recorded in Edit.Field.
const (
	FieldLength   = "ts_Rom_length"
	FieldChecksum = "checksum"
	FieldCRCLow   = "crc_lo"
	FieldCRCHigh  = "crc_hi"
)

// ErrImageSize is returned for images that cannot carry a trailer.
var ErrImageSize = errors.New("romsum: image size must be a multiple of 4, at least 20 bytes and below 4 GiB")

// Result is the outcome of verifying an image. Mismatches are reported
// through ChecksumOK and CRCOK, not as errors.
type Result struct {
	Size       int64     `json:"size"`
	Sum        uint32    `json:"sum"`
	Expected   uint32    `json:"expected"`
	Stored     uint32    `json:"stored"`
	ChecksumOK bool      `json:"checksumOk"`
	Lanes      [4]uint16 `json:"lanes"`
	Residual   [4]uint16 `json:"residual"`
	CRCOK      bool      `json:"crcOk"`
}

// OK reports whether both the checksum and the CRC verified.
func (r Result) OK() bool { return r.ChecksumOK && r.CRCOK }

func checkSize(size int64) error {
	if size < MinImageSize || size%4 != 0 || size > math.MaxUint32 {
		return fmt.Errorf("%w (got %d)", ErrImageSize, size)
	}
	return nil
}

// sumWords feeds n bytes of r, one word at a time, into s.
func sumWords(r io.Reader, n int64, s State) (State, error) {
	var w Word
	for ; n > 0; n -= 4 {
		if _, err := io.ReadFull(r, w[:]); err != nil {
			return s, err
		}
		s = s.Feed(w)
	}
	return s, nil
}

// Verify reads an image of the given size from r in a single pass and checks
// its trailing checksum and CRC words.
func Verify(r io.Reader, size int64) (Result, error) {
	res := Result{Size: size}
	if err := checkSize(size); err != nil {
		return res, err
	}
	br := bufio.NewReaderSize(r, readBufferSize)
	s, err := sumWords(br, size-TrailerSize, State{})
	if err != nil {
		return res, fmt.Errorf("romsum: read image: %w", err)
	}
	res.Sum = s.Additive
	res.Expected = s.Expected()

	var w Word
	if _, err := io.ReadFull(br, w[:]); err != nil {
		return res, fmt.Errorf("romsum: read checksum: %w", err)
	}
	res.Stored = w.Uint32()
	res.ChecksumOK = s.Additive+res.Stored == 0
	s = s.FeedCRC(w)
	res.Lanes = s.Lanes

	for i := 0; i < 2; i++ {
		if _, err := io.ReadFull(br, w[:]); err != nil {
			return res, fmt.Errorf("romsum: read crc: %w", err)
		}
		s = s.FeedCRC(w)
	}
	res.Residual = s.Lanes
	res.CRCOK = s.CRCZero()
	return res, nil
}

// VerifyBytes verifies an in-memory image.
func VerifyBytes(img []byte) (Result, error) {
	return Verify(bytes.NewReader(img), int64(len(img)))
}

// VerifyFile verifies the image stored at path.
func VerifyFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Result{}, err
	}
	return Verify(f, info.Size())
}
