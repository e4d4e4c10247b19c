package ecid

const (
	headerSize         = 8
	interruptBlockSize = 8

	idNotConformant = 0x80
	idReserved      = 0x7A
	idFIQ           = 0x04
	idIRQ           = 0x01

	flagChunkDirectory = 0x01
	flagInterruptPtrs  = 0x02
	flagsReserved      = 0xF0
)

// ValidateHeader checks the reserved bits of the first three bytes of an
// identity block. It returns a *FormatError naming the first offending byte.
func ValidateHeader(buf []byte) error {
	if err := need(buf, 0, headerSize); err != nil {
		return err
	}
	switch {
	case buf[0]&idNotConformant != 0:
		return &FormatError{Byte: 0, Value: buf[0], Code: ExitNotConformant, Reason: "not an Acorn-conformant ECID"}
	case buf[0]&idReserved != 0:
		return &FormatError{Byte: 0, Value: buf[0], Code: ExitReservedByte0, Reason: "reserved bits in ECID[0] not zero"}
	case buf[1]&flagsReserved != 0:
		return &FormatError{Byte: 1, Value: buf[1], Code: ExitReservedByte1, Reason: "reserved bits in ECID[1] not zero"}
	case buf[2] != 0:
		return &FormatError{Byte: 2, Value: buf[2], Code: ExitReservedByte2, Reason: "reserved bits in ECID[2] not zero"}
	}
	return nil
}

// DecodeHeader validates and decodes the fixed identity fields and the
// optional interrupt block. It returns the offset at which the chunk
// directory, if any, begins.
func DecodeHeader(buf []byte) (Header, int, error) {
	var hdr Header
	if err := ValidateHeader(buf); err != nil {
		return hdr, 0, err
	}
	hdr.IDByte = buf[0]
	hdr.HasChunkDirectory = buf[1]&flagChunkDirectory != 0
	hdr.HasInterruptPointers = buf[1]&flagInterruptPtrs != 0
	hdr.BusWidthBits = 1 << (3 + ((buf[1] >> 2) & 3))
	product, _ := ReadU16LE(buf, 3)
	manufacturer, _ := ReadU16LE(buf, 5)
	hdr.ProductID = uint16(product)
	hdr.ManufacturerID = uint16(manufacturer)
	hdr.CountryCode = buf[7]

	n := headerSize
	if hdr.HasInterruptPointers {
		if err := need(buf, n, interruptBlockSize); err != nil {
			return hdr, 0, err
		}
		irqAddr, _ := ReadU24LE(buf, n+1)
		fiqAddr, _ := ReadU24LE(buf, n+5)
		hdr.Interrupts = &InterruptBlock{
			IRQMask:    buf[n],
			IRQAddress: irqAddr,
			FIQMask:    buf[n+4],
			FIQAddress: fiqAddr,
		}
		n += interruptBlockSize
	}
	return hdr, n, nil
}
