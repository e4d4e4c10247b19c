package romsum

import "encoding/binary"

// crcMagic is the reflected CRC-16 polynomial (0x8005 bit-reversed).
const crcMagic = 0xA001

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcMagic
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Word is one 4-byte little-endian word of a ROM image.
type Word [4]byte

// Uint32 returns the little-endian value of w.
func (w Word) Uint32() uint32 { return binary.LittleEndian.Uint32(w[:]) }

// WordOf returns v as a little-endian Word.
func WordOf(v uint32) Word {
	var w Word
	binary.LittleEndian.PutUint32(w[:], v)
	return w
}

// State is the running additive checksum and the four CRC lanes of one pass
// over an image. Byte i of every word feeds lane i.
type State struct {
	Additive uint32
	Lanes    [4]uint16
	Bytes    int
}

// Feed adds w to the additive checksum and the CRC lanes.
func (s State) Feed(w Word) State {
	s.Additive += w.Uint32()
	return s.FeedCRC(w)
}

// FeedCRC adds w to the CRC lanes only.
func (s State) FeedCRC(w Word) State {
	for i, b := range w {
		lane := s.Lanes[i]
		s.Lanes[i] = lane>>8 ^ crcTable[byte(lane)^b]
	}
	s.Bytes += len(w)
	return s
}

// Expected returns the checksum word that makes the additive sum zero.
func (s State) Expected() uint32 { return 0 - s.Additive }

// CRCZero reports whether every lane is zero.
func (s State) CRCZero() bool {
	return s.Lanes[0]|s.Lanes[1]|s.Lanes[2]|s.Lanes[3] == 0
}

// CRCWords splits the lanes into the two trailing CRC words: the low byte of
// each lane, then the high byte of each lane.
func (s State) CRCWords() (lo, hi Word) {
	for i, lane := range s.Lanes {
		lo[i] = byte(lane)
		hi[i] = byte(lane >> 8)
	}
	return lo, hi
}
