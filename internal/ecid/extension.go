package ecid

import "bytes"

const (
	// ExtensionBlockSize is the stride at which extension ROM trailers are
	// searched for.
	ExtensionBlockSize = 16384

	extSizeOffset     = 0x3FF0
	extChecksumOffset = 0x3FF4
	extMagicOffset    = 0x3FF8

	// ExtensionTrailerSize covers the size word, the checksum word and the
	// magic.
	ExtensionTrailerSize = 16
	// extension checksums exclude the checksum word and the magic
	extChecksumExclude = 12
)

// ExtensionMagic marks an extension ROM trailer.
var ExtensionMagic = []byte("ExtnROM0")

// ScanExtensionHeaders looks for an ExtnROM0 trailer at the end of every
// 16 KiB block of buf and checks its additive checksum. The checksum always
// covers the image from offset 0, whatever block the trailer sits in.
func ScanExtensionHeaders(buf []byte) []ExtensionHeader {
	var found []ExtensionHeader
	for i := 0; i+ExtensionBlockSize <= len(buf); i += ExtensionBlockSize {
		magic := buf[i+extMagicOffset : i+extMagicOffset+len(ExtensionMagic)]
		if !bytes.Equal(magic, ExtensionMagic) {
			continue
		}
		ext := ExtensionHeader{BlockOffset: i, HeaderOffset: i + extSizeOffset}
		ext.ROMSize, _ = ReadU32LE(buf, i+extSizeOffset)
		ext.StoredChecksum, _ = ReadU32LE(buf, i+extChecksumOffset)
		ext.ComputedChecksum, ext.Truncated = AdditiveSum(buf, ext.ROMSize)
		ext.OK = !ext.Truncated && ext.ComputedChecksum == ext.StoredChecksum
		found = append(found, ext)
	}
	return found
}

// AdditiveSum returns the wrapping sum of the little-endian words starting
// in [0, romSize-12). A final word that straddles romSize-12 is added whole.
// Bytes past the end of buf read as zero; truncated reports whether any
// were needed.
func AdditiveSum(buf []byte, romSize uint32) (sum uint32, truncated bool) {
	if romSize < extChecksumExclude {
		return 0, true
	}
	end := uint64(romSize - extChecksumExclude)
	if end > uint64(len(buf)) {
		end = uint64(len(buf))
		truncated = true
	}
	for m := 0; m < int(end); m += 4 {
		w, err := ReadU32LE(buf, m)
		if err != nil {
			var tail [4]byte
			copy(tail[:], buf[m:])
			w, _ = ReadU32LE(tail[:], 0)
			truncated = true
		}
		sum += w
	}
	return sum, truncated
}
