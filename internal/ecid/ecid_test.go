package ecid

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type testChunk struct {
	osid uint8
	data []byte
}

// buildCard lays out an identity block with a chunk directory at offset 8
// (16 with interrupt pointers) and the chunk bodies at dataStart.
func buildCard(t *testing.T, byte1 uint8, chunks []testChunk, terminate bool, dataStart int) []byte {
	t.Helper()
	buf := make([]byte, dataStart)
	buf[0] = 0x00
	buf[1] = byte1
	binary.LittleEndian.PutUint16(buf[3:], 0x0087)
	binary.LittleEndian.PutUint16(buf[5:], 0x0050)
	buf[7] = 0x01
	n := 8
	if byte1&flagInterruptPtrs != 0 {
		n += interruptBlockSize
	}
	for _, c := range chunks {
		addr := len(buf)
		buf = append(buf, c.data...)
		binary.LittleEndian.PutUint32(buf[n:], uint32(c.osid)|uint32(len(c.data))<<8)
		binary.LittleEndian.PutUint32(buf[n+4:], uint32(addr))
		n += recordSize
	}
	if terminate {
		binary.LittleEndian.PutUint32(buf[n:], 0)
		n += terminatorSize
	}
	if n > dataStart {
		t.Fatalf("directory (%d bytes) overlaps chunk data at %d", n, dataStart)
	}
	return buf
}

type memSink struct {
	names []string
	data  map[int][]byte
}

func (s *memSink) WriteChunk(index int, rec ChunkRecord, data []byte) (string, error) {
	if s.data == nil {
		s.data = make(map[int][]byte)
	}
	name := fmt.Sprintf("%02d.bin", index)
	s.names = append(s.names, name)
	s.data[index] = append([]byte(nil), data...)
	return name, nil
}

func TestReadLEBounds(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	if v, err := ReadU32LE(buf, 0); err != nil || v != 0x04030201 {
		t.Fatalf("ReadU32LE = %#x, %v", v, err)
	}
	if v, err := ReadU24LE(buf, 1); err != nil || v != 0x040302 {
		t.Fatalf("ReadU24LE = %#x, %v", v, err)
	}
	if v, err := ReadU16LE(buf, 2); err != nil || v != 0x0403 {
		t.Fatalf("ReadU16LE = %#x, %v", v, err)
	}
	for _, tc := range []struct {
		name string
		read func() error
	}{
		{"u32 past end", func() error { _, err := ReadU32LE(buf, 1); return err }},
		{"u24 past end", func() error { _, err := ReadU24LE(buf, 2); return err }},
		{"u16 negative", func() error { _, err := ReadU16LE(buf, -1); return err }},
		{"cstring at end", func() error { _, err := ReadCString(buf, 4); return err }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var berr *BoundsError
			if err := tc.read(); !errors.As(err, &berr) {
				t.Fatalf("expected *BoundsError, got %v", err)
			}
		})
	}
}

func TestReadCString(t *testing.T) {
	buf := []byte("Podule\x00rest")
	if s, err := ReadCString(buf, 0); err != nil || s != "Podule" {
		t.Fatalf("ReadCString = %q, %v", s, err)
	}
	if s, err := ReadCString(buf, 7); err != nil || s != "rest" {
		t.Fatalf("unterminated ReadCString = %q, %v", s, err)
	}
}

func TestValidateHeaderReservedBits(t *testing.T) {
	tests := []struct {
		name     string
		offset   int
		value    uint8
		wantByte int
		wantCode int
	}{
		{name: "not conformant", offset: 0, value: 0x80, wantByte: 0, wantCode: ExitNotConformant},
		{name: "byte0 bit1", offset: 0, value: 0x02, wantByte: 0, wantCode: ExitReservedByte0},
		{name: "byte0 bit3", offset: 0, value: 0x08, wantByte: 0, wantCode: ExitReservedByte0},
		{name: "byte0 bit4", offset: 0, value: 0x10, wantByte: 0, wantCode: ExitReservedByte0},
		{name: "byte0 bit5", offset: 0, value: 0x20, wantByte: 0, wantCode: ExitReservedByte0},
		{name: "byte0 bit6", offset: 0, value: 0x40, wantByte: 0, wantCode: ExitReservedByte0},
		{name: "byte1 bit4", offset: 1, value: 0x10, wantByte: 1, wantCode: ExitReservedByte1},
		{name: "byte1 bit7", offset: 1, value: 0x80, wantByte: 1, wantCode: ExitReservedByte1},
		{name: "byte2", offset: 2, value: 0x01, wantByte: 2, wantCode: ExitReservedByte2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 16)
			buf[tc.offset] = tc.value
			card, err := Decode(buf, Options{})
			if card != nil {
				t.Fatalf("Decode returned a card for a bad header")
			}
			if !errors.Is(err, &FormatError{}) {
				t.Fatalf("expected FormatError, got %v", err)
			}
			var ferr *FormatError
			errors.As(err, &ferr)
			if ferr.Byte != tc.wantByte || ferr.Code != tc.wantCode {
				t.Fatalf("FormatError byte=%d code=%d, want byte=%d code=%d", ferr.Byte, ferr.Code, tc.wantByte, tc.wantCode)
			}
			if got := ExitCode(err); got != tc.wantCode {
				t.Fatalf("ExitCode = %d, want %d", got, tc.wantCode)
			}
		})
	}
}

func TestValidateHeaderAcceptsFlags(t *testing.T) {
	buf := []byte{idFIQ | idIRQ, 0x0F, 0, 0, 0, 0, 0, 0}
	if err := ValidateHeader(buf); err != nil {
		t.Fatalf("ValidateHeader: %v", err)
	}
	if err := ValidateHeader(buf[:7]); !errors.Is(err, &BoundsError{}) {
		t.Fatalf("short header err = %v, want BoundsError", err)
	}
}

func TestDecodeHeader(t *testing.T) {
	buf := []byte{
		0x05, 0x02 | 0x08, 0x00, 0x34, 0x12, 0x78, 0x56, 0x2A,
		0x0F, 0x00, 0x30, 0x33, 0x01, 0x10, 0x20, 0x03,
	}
	hdr, next, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if next != 16 {
		t.Fatalf("next offset = %d, want 16", next)
	}
	if !hdr.Conformant() || !hdr.HasFIQ() || !hdr.HasIRQ() {
		t.Fatalf("flags decoded wrong: %+v", hdr)
	}
	if hdr.HasChunkDirectory || !hdr.HasInterruptPointers {
		t.Fatalf("directory/interrupt flags wrong: %+v", hdr)
	}
	if hdr.BusWidthBits != 32 {
		t.Fatalf("BusWidthBits = %d, want 32", hdr.BusWidthBits)
	}
	if hdr.ProductID != 0x1234 || hdr.ManufacturerID != 0x5678 || hdr.CountryCode != 0x2A {
		t.Fatalf("ids decoded wrong: %+v", hdr)
	}
	want := InterruptBlock{IRQMask: 0x0F, IRQAddress: 0x333000, FIQMask: 0x01, FIQAddress: 0x032010}
	if hdr.Interrupts == nil || *hdr.Interrupts != want {
		t.Fatalf("Interrupts = %+v, want %+v", hdr.Interrupts, want)
	}
}

func TestDecodeHeaderBusWidth(t *testing.T) {
	for field, want := range []uint32{8, 16, 32, 64} {
		buf := make([]byte, 8)
		buf[1] = uint8(field) << 2
		hdr, next, err := DecodeHeader(buf)
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		if hdr.BusWidthBits != want {
			t.Fatalf("width field %d: BusWidthBits = %d, want %d", field, hdr.BusWidthBits, want)
		}
		if next != 8 || hdr.Interrupts != nil {
			t.Fatalf("unexpected interrupt block: next=%d %+v", next, hdr.Interrupts)
		}
	}
}

func TestDecodeModuleWithoutTitle(t *testing.T) {
	module := make([]byte, 0x20)
	buf := buildCard(t, flagChunkDirectory, []testChunk{{osid: OSID(TypeRISCOS, 1), data: nil}}, true, 0x40)
	// size 0 chunk whose address points at a zeroed module header
	buf = append(buf, module...)

	sink := &memSink{}
	card, err := Decode(buf, Options{Sink: sink})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(card.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(card.Chunks))
	}
	p := card.Chunks[0].Payload
	if p.Kind != KindRelocatableModule || p.Title != "" || p.Help != "" {
		t.Fatalf("payload = %+v, want untitled module", p)
	}
	if !card.Terminated || card.Truncated != nil {
		t.Fatalf("Terminated=%v Truncated=%v", card.Terminated, card.Truncated)
	}
	if len(sink.names) != 1 || sink.names[0] != "01.bin" || len(sink.data[1]) != 0 {
		t.Fatalf("sink = %+v", sink.names)
	}

	// 0x91 carries type 1, which is not RISC OS.
	buf = buildCard(t, flagChunkDirectory, []testChunk{{osid: 0x91, data: nil}}, true, 0x40)
	buf = append(buf, module...)
	card, err = Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode 0x91: %v", err)
	}
	if p := card.Chunks[0].Payload; p.Kind != KindReserved || p.Type != 1 || p.Subtype != 1 {
		t.Fatalf("0x91 payload = %+v, want reserved type 1", p)
	}
}

func TestDecodeModuleTitleAndHelp(t *testing.T) {
	module := make([]byte, 0x40)
	binary.LittleEndian.PutUint32(module[moduleTitleOffset:], 0x20)
	binary.LittleEndian.PutUint32(module[moduleHelpOffset:], 0x2C)
	copy(module[0x20:], "EtherPod\x00")
	copy(module[0x2C:], "EtherPod\t1.02\x00")

	buf := buildCard(t, flagChunkDirectory, []testChunk{{osid: OSID(TypeRISCOS, 1), data: module}}, true, 0x20)
	card, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := card.Chunks[0].Payload
	if p.Title != "EtherPod" || p.Help != "EtherPod\t1.02" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestWalkerEmitsEveryChunk(t *testing.T) {
	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("%d chunks", k), func(t *testing.T) {
			chunks := make([]testChunk, k)
			for i := range chunks {
				chunks[i] = testChunk{osid: OSID(TypeManufacturer, uint8(i)), data: []byte{byte(i), 0xAA}}
			}
			buf := buildCard(t, flagChunkDirectory, chunks, true, 0x80)
			sink := &memSink{}
			card, err := Decode(buf, Options{Sink: sink})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(card.Chunks) != k || len(sink.names) != k {
				t.Fatalf("chunks=%d exported=%d, want %d", len(card.Chunks), len(sink.names), k)
			}
			for i, c := range card.Chunks {
				if c.Index != i+1 {
					t.Fatalf("chunk %d index = %d", i, c.Index)
				}
				if c.Payload.Kind != KindManufacturerData {
					t.Fatalf("chunk %d kind = %s", i, c.Payload.Kind)
				}
				if got := sink.data[i+1]; len(got) != 2 || got[0] != byte(i) {
					t.Fatalf("chunk %d exported % x", i, got)
				}
			}
			if !card.Terminated {
				t.Fatalf("walk did not end on the terminator")
			}
		})
	}
}

func TestWalkerNextAfterEnd(t *testing.T) {
	buf := buildCard(t, flagChunkDirectory, []testChunk{{osid: OSID(TypeUnix, 0), data: []byte{1}}}, true, 0x20)
	w := NewWalker(buf, 8)
	rec, err := w.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if rec.Offset != 8 || rec.OSID != OSID(TypeUnix, 0) || rec.Size != 1 {
		t.Fatalf("record = %+v", rec)
	}
	if _, err := ReadU8(buf, len(buf)); err == nil {
		t.Fatalf("ReadU8 past the end succeeded")
	}
	for i := 0; i < 2; i++ {
		if _, err := w.Next(); err == nil {
			t.Fatalf("Next after terminator returned a record")
		}
	}
	if w.State() != StateTerminated || w.Count() != 1 {
		t.Fatalf("state=%s count=%d", w.State(), w.Count())
	}
}

func TestMissingOsidFlag(t *testing.T) {
	buf := buildCard(t, flagChunkDirectory, []testChunk{
		{osid: OSID(TypeDeviceData, DeviceSerialNumber), data: []byte("SN1\x00")},
		{osid: 0x11, data: []byte{0}},
		{osid: OSID(TypeDeviceData, DeviceDescription), data: []byte("never\x00")},
	}, true, 0x40)
	sink := &memSink{}
	card, err := Decode(buf, Options{Sink: sink})
	if !errors.Is(err, &MissingOsidFlagError{}) {
		t.Fatalf("expected MissingOsidFlagError, got %v", err)
	}
	var merr *MissingOsidFlagError
	errors.As(err, &merr)
	if merr.Offset != 16 || merr.OSID != 0x11 {
		t.Fatalf("error = %+v", merr)
	}
	if ExitCode(err) != ExitMissingOSID {
		t.Fatalf("ExitCode = %d", ExitCode(err))
	}
	if card == nil || len(card.Chunks) != 1 || len(sink.names) != 1 {
		t.Fatalf("expected the first chunk to survive, card=%+v sink=%v", card, sink.names)
	}
}

func TestTruncatedDirectory(t *testing.T) {
	chunk := []testChunk{{osid: OSID(TypeRISCOS, 2), data: []byte{0xBB}}}
	buf := buildCard(t, flagChunkDirectory, chunk, false, 8+recordSize)
	// the chunk body sits right behind its record, leaving no room for
	// another record
	card, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if card.Terminated {
		t.Fatalf("directory reported as terminated")
	}
	if card.Truncated == nil || card.Truncated.Chunks != 1 {
		t.Fatalf("Truncated = %+v", card.Truncated)
	}
	if !errors.Is(card.Truncated, &TruncatedDirectoryError{}) {
		t.Fatalf("Truncated does not match its own type")
	}
	if card.Chunks[0].Payload.Kind != KindBBCROM {
		t.Fatalf("kind = %s", card.Chunks[0].Payload.Kind)
	}
}

func TestChunkOutsideBuffer(t *testing.T) {
	buf := buildCard(t, flagChunkDirectory, nil, false, 0x20)
	binary.LittleEndian.PutUint32(buf[8:], uint32(OSID(TypeRISCOS, 0))|0x100<<8)
	binary.LittleEndian.PutUint32(buf[12:], 0x10)
	_, err := Decode(buf, Options{})
	if !errors.Is(err, &BoundsError{}) {
		t.Fatalf("expected BoundsError, got %v", err)
	}
	if ExitCode(err) != ExitBounds {
		t.Fatalf("ExitCode = %d, want %d", ExitCode(err), ExitBounds)
	}
}

func TestDirectoryAbsent(t *testing.T) {
	buf := buildCard(t, 0, nil, false, 0x10)
	card, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(card.Chunks) != 0 || card.Terminated || card.Truncated != nil {
		t.Fatalf("card = %+v", card)
	}
}

func TestDevicePayloads(t *testing.T) {
	rev := make([]byte, 4)
	binary.LittleEndian.PutUint32(rev, 0x0203)
	tests := []struct {
		name    string
		subtype uint8
		data    []byte
		check   func(t *testing.T, p Payload)
	}{
		{"serial", DeviceSerialNumber, []byte("A1234\x00"), wantText(KindSerialNumber, "A1234")},
		{"date", DeviceManufactureDate, []byte("1994-03\x00"), wantText(KindManufactureDate, "1994-03")},
		{"modification", DeviceModificationStatus, []byte("Issue 2\x00"), wantText(KindModificationStatus, "Issue 2")},
		{"place", DevicePlaceOfManufacture, []byte("Cambridge\x00"), wantText(KindPlaceOfManufacture, "Cambridge")},
		{"description", DeviceDescription, []byte("Network card\x00"), wantText(KindDescription, "Network card")},
		{"part", DevicePartNumber, []byte("AKA25\x00"), wantText(KindPartNumber, "AKA25")},
		{"mac", DeviceMACAddress, []byte{0x00, 0x00, 0xA4, 0x10, 0x20, 0xFE}, func(t *testing.T, p Payload) {
			if p.Kind != KindMACAddress || p.MACString() != "00-00-A4-10-20-FE" {
				t.Fatalf("payload = %+v (%s)", p, p.MACString())
			}
		}},
		{"pcb", DevicePCBRevision, rev, func(t *testing.T, p Payload) {
			if p.Kind != KindPCBRevision || p.PCBRevision != 0x0203 {
				t.Fatalf("payload = %+v", p)
			}
		}},
		{"empty", DeviceEmptyChunk, []byte{0}, func(t *testing.T, p Payload) {
			if p.Kind != KindEmptyChunk {
				t.Fatalf("payload = %+v", p)
			}
		}},
		{"link", DeviceLink, []byte{0, 0, 0, 0}, func(t *testing.T, p Payload) {
			if p.Kind != KindDeviceLink || p.LinkAddress != 0x20 {
				t.Fatalf("payload = %+v", p)
			}
		}},
		{"reserved subtype", 9, []byte{0}, wantReserved(TypeDeviceData, 9)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := buildCard(t, flagChunkDirectory, []testChunk{{osid: OSID(TypeDeviceData, tc.subtype), data: tc.data}}, true, 0x20)
			card, err := Decode(buf, Options{})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tc.check(t, card.Chunks[0].Payload)
		})
	}
}

func TestReservedCombinations(t *testing.T) {
	for _, osid := range []uint8{
		OSID(TypeRISCOS, 4), OSID(TypeRISCOS, 15), OSID(1, 0), OSID(TypeUnix, 1),
		OSID(3, 7), OSID(4, 0), OSID(5, 2),
	} {
		rec := ChunkRecord{OSID: osid, Size: 1, Address: 0}
		p, err := DecodePayload(rec, []byte{0})
		if err != nil {
			t.Fatalf("DecodePayload(%#x): %v", osid, err)
		}
		wantReserved(rec.Type(), rec.Subtype())(t, p)
	}
}

func wantText(kind PayloadKind, text string) func(t *testing.T, p Payload) {
	return func(t *testing.T, p Payload) {
		t.Helper()
		if p.Kind != kind || p.Text != text {
			t.Fatalf("payload = %+v, want %s %q", p, kind, text)
		}
	}
}

func wantReserved(typ, subtype uint8) func(t *testing.T, p Payload) {
	return func(t *testing.T, p Payload) {
		t.Helper()
		if p.Kind != KindReserved || p.Type != typ || p.Subtype != subtype {
			t.Fatalf("payload = %+v, want reserved %d/%d", p, typ, subtype)
		}
	}
}

func buildExtensionImage(size int, romSize uint32, corrupt bool) []byte {
	buf := make([]byte, size)
	for i := 0; i < size-ExtensionTrailerSize; i++ {
		buf[i] = byte(i)
	}
	trailer := int(romSize) - ExtensionTrailerSize
	binary.LittleEndian.PutUint32(buf[trailer:], romSize)
	sum, _ := AdditiveSum(buf, romSize)
	if corrupt {
		sum++
	}
	binary.LittleEndian.PutUint32(buf[trailer+4:], sum)
	copy(buf[trailer+8:], ExtensionMagic)
	return buf
}

func TestScanExtensionHeaders(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		buf := buildExtensionImage(2*ExtensionBlockSize, 2*ExtensionBlockSize, false)
		found := ScanExtensionHeaders(buf)
		if len(found) != 1 {
			t.Fatalf("found %d headers, want 1", len(found))
		}
		ext := found[0]
		if ext.BlockOffset != ExtensionBlockSize || ext.HeaderOffset != ExtensionBlockSize+0x3FF0 {
			t.Fatalf("offsets = %+v", ext)
		}
		if !ext.OK || ext.ComputedChecksum != ext.StoredChecksum {
			t.Fatalf("checksum mismatch: %+v", ext)
		}
	})
	t.Run("bad checksum", func(t *testing.T) {
		found := ScanExtensionHeaders(buildExtensionImage(ExtensionBlockSize, ExtensionBlockSize, true))
		if len(found) != 1 || found[0].OK {
			t.Fatalf("found = %+v", found)
		}
	})
	t.Run("rom larger than buffer", func(t *testing.T) {
		buf := buildExtensionImage(ExtensionBlockSize, ExtensionBlockSize, false)
		binary.LittleEndian.PutUint32(buf[0x3FF0:], 4*ExtensionBlockSize)
		found := ScanExtensionHeaders(buf)
		if len(found) != 1 || !found[0].Truncated || found[0].OK {
			t.Fatalf("found = %+v", found)
		}
	})
	t.Run("no magic", func(t *testing.T) {
		if found := ScanExtensionHeaders(make([]byte, 3*ExtensionBlockSize)); len(found) != 0 {
			t.Fatalf("found = %+v", found)
		}
	})
	t.Run("short buffer", func(t *testing.T) {
		if found := ScanExtensionHeaders(make([]byte, 100)); len(found) != 0 {
			t.Fatalf("found = %+v", found)
		}
	})
}

func TestAdditiveSumPartialWord(t *testing.T) {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = byte(i)
	}
	// romSize-12 = 10, so the word at 8 is still summed in full.
	sum, truncated := AdditiveSum(buf, 22)
	if sum != 0x15120F0C || truncated {
		t.Fatalf("sum = %08X truncated = %v, want 15120F0C", sum, truncated)
	}

	sum, truncated = AdditiveSum(buf[:10], 22)
	if sum != 0x0A080604+0x0908 || !truncated {
		t.Fatalf("short buffer sum = %08X truncated = %v", sum, truncated)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	buf := buildCard(t, flagChunkDirectory|flagInterruptPtrs, []testChunk{
		{osid: OSID(TypeDeviceData, DeviceSerialNumber), data: []byte("X9\x00")},
		{osid: OSID(TypeDeviceData, DeviceMACAddress), data: []byte{1, 2, 3, 4, 5, 6}},
	}, true, 0x40)
	first, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("decodes differ:\n%+v\n%+v", first, second)
	}
	if first.DirectoryOffset != 16 {
		t.Fatalf("DirectoryOffset = %d, want 16", first.DirectoryOffset)
	}
}

func TestMACAddressText(t *testing.T) {
	p := Payload{Kind: KindMACAddress, MAC: MACAddress{0x00, 0x00, 0xA4, 0x10, 0x20, 0xFE}}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"mac":"00-00-A4-10-20-FE"`) {
		t.Fatalf("json = %s", b)
	}
	var back Payload
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.MACString() != p.MACString() {
		t.Fatalf("MAC = %s, want %s", back.MACString(), p.MACString())
	}
	if b, _ := json.Marshal(Payload{Kind: KindSerialNumber}); strings.Contains(string(b), "mac") {
		t.Fatalf("empty MAC serialized: %s", b)
	}
	var bad MACAddress
	if err := bad.UnmarshalText([]byte("00-11")); err == nil {
		t.Fatalf("expected an error for a short MAC")
	}
}
