package ecid

// OSID type codes (bits 4..6 of the OSID byte).
const (
	TypeRISCOS       uint8 = 0
	TypeUnix         uint8 = 2
	TypeManufacturer uint8 = 6
	TypeDeviceData   uint8 = 7
)

// Device data subtypes.
const (
	DeviceLink               uint8 = 0
	DeviceSerialNumber       uint8 = 1
	DeviceManufactureDate    uint8 = 2
	DeviceModificationStatus uint8 = 3
	DevicePlaceOfManufacture uint8 = 4
	DeviceDescription        uint8 = 5
	DevicePartNumber         uint8 = 6
	DeviceMACAddress         uint8 = 7
	DevicePCBRevision        uint8 = 8
	DeviceEmptyChunk         uint8 = 15
)

const (
	moduleTitleOffset = 0x10
	moduleHelpOffset  = 0x14
	macAddressLen     = 6
)

// OSID builds an OSID byte from a type and subtype.
func OSID(typ, subtype uint8) uint8 {
	return osidFlag | (typ&0x7)<<4 | subtype&0xF
}

type osidKey struct {
	typ, subtype uint8
}

type payloadDecoder func(p *Payload, rec ChunkRecord, buf []byte) error

func kind(k PayloadKind) payloadDecoder {
	return func(p *Payload, _ ChunkRecord, _ []byte) error {
		p.Kind = k
		return nil
	}
}

func deviceString(k PayloadKind) payloadDecoder {
	return func(p *Payload, rec ChunkRecord, buf []byte) error {
		text, err := ReadCString(buf, int(rec.Address))
		if err != nil {
			return err
		}
		p.Kind = k
		p.Text = text
		return nil
	}
}

var payloadDecoders = map[osidKey]payloadDecoder{
	{TypeRISCOS, 0}: kind(KindLoader),
	{TypeRISCOS, 1}: decodeModule,
	{TypeRISCOS, 2}: kind(KindBBCROM),
	{TypeRISCOS, 3}: kind(KindSprite),

	{TypeUnix, 0}: kind(KindUnixLoader),

	{TypeDeviceData, DeviceLink}:               decodeLink,
	{TypeDeviceData, DeviceSerialNumber}:       deviceString(KindSerialNumber),
	{TypeDeviceData, DeviceManufactureDate}:    deviceString(KindManufactureDate),
	{TypeDeviceData, DeviceModificationStatus}: deviceString(KindModificationStatus),
	{TypeDeviceData, DevicePlaceOfManufacture}: deviceString(KindPlaceOfManufacture),
	{TypeDeviceData, DeviceDescription}:        deviceString(KindDescription),
	{TypeDeviceData, DevicePartNumber}:         deviceString(KindPartNumber),
	{TypeDeviceData, DeviceMACAddress}:         decodeMAC,
	{TypeDeviceData, DevicePCBRevision}:        decodePCBRevision,
	{TypeDeviceData, DeviceEmptyChunk}:         kind(KindEmptyChunk),
}

func init() {
	for sub := uint8(0); sub < 16; sub++ {
		payloadDecoders[osidKey{TypeManufacturer, sub}] = kind(KindManufacturerData)
	}
}

// DecodePayload interprets the chunk described by rec. Combinations of type
// and subtype without a known grammar decode to KindReserved.
func DecodePayload(rec ChunkRecord, buf []byte) (Payload, error) {
	p := Payload{Type: rec.Type(), Subtype: rec.Subtype()}
	dec, ok := payloadDecoders[osidKey{p.Type, p.Subtype}]
	if !ok {
		p.Kind = KindReserved
		return p, nil
	}
	if err := dec(&p, rec, buf); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Module title and help pointers are relative to the start of the chunk.
func decodeModule(p *Payload, rec ChunkRecord, buf []byte) error {
	p.Kind = KindRelocatableModule
	base := int(rec.Address)
	title, err := ReadU32LE(buf, base+moduleTitleOffset)
	if err != nil {
		return err
	}
	help, err := ReadU32LE(buf, base+moduleHelpOffset)
	if err != nil {
		return err
	}
	if title != 0 {
		if p.Title, err = ReadCString(buf, base+int(title)); err != nil {
			return err
		}
	}
	if help != 0 {
		if p.Help, err = ReadCString(buf, base+int(help)); err != nil {
			return err
		}
	}
	return nil
}

func decodeLink(p *Payload, rec ChunkRecord, _ []byte) error {
	p.Kind = KindDeviceLink
	p.LinkAddress = rec.Address
	return nil
}

func decodeMAC(p *Payload, rec ChunkRecord, buf []byte) error {
	if err := need(buf, int(rec.Address), macAddressLen); err != nil {
		return err
	}
	p.Kind = KindMACAddress
	p.MAC = append(MACAddress(nil), buf[rec.Address:int(rec.Address)+macAddressLen]...)
	return nil
}

func decodePCBRevision(p *Payload, rec ChunkRecord, buf []byte) error {
	rev, err := ReadU32LE(buf, int(rec.Address))
	if err != nil {
		return err
	}
	p.Kind = KindPCBRevision
	p.PCBRevision = rev
	return nil
}
