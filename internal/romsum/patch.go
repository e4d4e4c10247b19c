package romsum

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// ReadWriterAt is the random access an image needs for patching.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Edit records one in-place modification of an image.
type Edit struct {
	Field  string `json:"field"`
	Offset int64  `json:"offset"`
	Before []byte `json:"before"`
	After  []byte `json:"after"`
}

// Changed reports whether the edit altered any byte.
func (e Edit) Changed() bool { return string(e.Before) != string(e.After) }

// PatchResult describes the values written by Patch.
type PatchResult struct {
	Size     int64     `json:"size"`
	Length   uint32    `json:"length"`
	Checksum uint32    `json:"checksum"`
	Lanes    [4]uint16 `json:"lanes"`
	Edits    []Edit    `json:"edits"`
}

// Trailer returns the 12 trailing bytes of an image: the checksum word,
// then the low bytes of the four CRC lanes, then their high bytes.
func Trailer(checksum uint32, lanes [4]uint16) [TrailerSize]byte {
	var out [TrailerSize]byte
	cs := WordOf(checksum)
	lo, hi := State{Lanes: lanes}.CRCWords()
	copy(out[0:4], cs[:])
	copy(out[4:8], lo[:])
	copy(out[8:12], hi[:])
	return out
}

// Patch sets the length word of the image to size and then rewrites the
// checksum and CRC trailer so that the image verifies. The length is
// written first because the checksum covers it.
func Patch(f ReadWriterAt, size int64) (PatchResult, error) {
	res := PatchResult{Size: size}
	if err := checkSize(size); err != nil {
		return res, err
	}
	res.Length = uint32(size)
	edit, err := writeWord(f, FieldLength, LengthOffset, WordOf(res.Length))
	if err != nil {
		return res, err
	}
	res.Edits = append(res.Edits, edit)

	body := bufio.NewReaderSize(io.NewSectionReader(f, 0, size-TrailerSize), readBufferSize)
	s, err := sumWords(body, size-TrailerSize, State{})
	if err != nil {
		return res, fmt.Errorf("romsum: read image: %w", err)
	}
	res.Checksum = s.Expected()
	s = s.FeedCRC(WordOf(res.Checksum))
	res.Lanes = s.Lanes

	lo, hi := s.CRCWords()
	trailer := []struct {
		field string
		word  Word
	}{
		{FieldChecksum, WordOf(res.Checksum)},
		{FieldCRCLow, lo},
		{FieldCRCHigh, hi},
	}
	offset := size - TrailerSize
	for _, t := range trailer {
		edit, err := writeWord(f, t.field, offset, t.word)
		if err != nil {
			return res, err
		}
		res.Edits = append(res.Edits, edit)
		offset += 4
	}
	return res, nil
}

func writeWord(f ReadWriterAt, field string, offset int64, w Word) (Edit, error) {
	before := make([]byte, len(w))
	if _, err := f.ReadAt(before, offset); err != nil {
		return Edit{}, fmt.Errorf("romsum: read %s: %w", field, err)
	}
	if _, err := f.WriteAt(w[:], offset); err != nil {
		return Edit{}, fmt.Errorf("romsum: write %s: %w", field, err)
	}
	return Edit{Field: field, Offset: offset, Before: before, After: append([]byte(nil), w[:]...)}, nil
}

type memImage []byte

func (m memImage) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m)) {
		return 0, io.EOF
	}
	n := copy(p, m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m memImage) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(m)) {
		return 0, io.ErrShortWrite
	}
	return copy(m[off:], p), nil
}

// PatchBytes patches an in-memory image.
func PatchBytes(img []byte) (PatchResult, error) {
	return Patch(memImage(img), int64(len(img)))
}

// PatchFile patches the image stored at path in place.
func PatchFile(path string) (PatchResult, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return PatchResult{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return PatchResult{}, err
	}
	res, err := Patch(f, info.Size())
	if err != nil {
		return res, err
	}
	return res, f.Sync()
}
