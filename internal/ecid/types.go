package ecid

import (
	"fmt"
	"strconv"
	"strings"
)

// Header is the fixed part of an expansion card identity block.
type Header struct {
	IDByte               uint8           `json:"idByte"`
	HasChunkDirectory    bool            `json:"hasChunkDirectory"`
	HasInterruptPointers bool            `json:"hasInterruptPointers"`
	BusWidthBits         uint32          `json:"busWidthBits"`
	ProductID            uint16          `json:"productId"`
	ManufacturerID       uint16          `json:"manufacturerId"`
	CountryCode          uint8           `json:"countryCode"`
	Interrupts           *InterruptBlock `json:"interrupts,omitempty"`
}

// Conformant reports whether the ID byte declares an Acorn-conformant card.
// Decoded headers are always conformant.
func (h Header) Conformant() bool { return h.IDByte&idNotConformant == 0 }

func (h Header) HasFIQ() bool { return h.IDByte&idFIQ != 0 }

func (h Header) HasIRQ() bool { return h.IDByte&idIRQ != 0 }

// InterruptBlock holds the optional interrupt status pointers.
type InterruptBlock struct {
	IRQMask    uint8  `json:"irqMask"`
	IRQAddress uint32 `json:"irqAddress"`
	FIQMask    uint8  `json:"fiqMask"`
	FIQAddress uint32 `json:"fiqAddress"`
}

// ChunkRecord is one entry of the chunk directory.
type ChunkRecord struct {
	OSID    uint8  `json:"osid"`
	Size    uint32 `json:"size"`
	Address uint32 `json:"address"`
	Offset  int    `json:"offset"`
}

func (r ChunkRecord) Type() uint8    { return (r.OSID >> 4) & 0x7 }
func (r ChunkRecord) Subtype() uint8 { return r.OSID & 0xF }

// IsTerminator reports whether r is the directory sentinel.
func (r ChunkRecord) IsTerminator() bool { return r.OSID == 0 && r.Size == 0 }

// End returns the offset one past the last byte of the chunk.
func (r ChunkRecord) End() uint64 { return uint64(r.Address) + uint64(r.Size) }

// PayloadKind selects which Payload fields are meaningful.
type PayloadKind string

const (
	KindLoader             PayloadKind = "loader"
	KindRelocatableModule  PayloadKind = "relocatableModule"
	KindBBCROM             PayloadKind = "bbcRom"
	KindSprite             PayloadKind = "sprite"
	KindUnixLoader         PayloadKind = "unixLoader"
	KindManufacturerData   PayloadKind = "manufacturerData"
	KindDeviceLink         PayloadKind = "deviceLink"
	KindSerialNumber       PayloadKind = "serialNumber"
	KindManufactureDate    PayloadKind = "manufactureDate"
	KindModificationStatus PayloadKind = "modificationStatus"
	KindPlaceOfManufacture PayloadKind = "placeOfManufacture"
	KindDescription        PayloadKind = "description"
	KindPartNumber         PayloadKind = "partNumber"
	KindMACAddress         PayloadKind = "macAddress"
	KindPCBRevision        PayloadKind = "pcbRevision"
	KindEmptyChunk         PayloadKind = "emptyChunk"
	KindReserved           PayloadKind = "reserved"
)

// Payload is the interpretation of a chunk's bytes. Title and Help are set
// for relocatable modules, Text for device data strings, MAC for MAC
// address chunks, PCBRevision for PCB revision chunks and LinkAddress for
// links to another directory.
type Payload struct {
	Kind        PayloadKind `json:"kind"`
	Type        uint8       `json:"type"`
	Subtype     uint8       `json:"subtype"`
	Title       string      `json:"title,omitempty"`
	Help        string      `json:"help,omitempty"`
	Text        string      `json:"text,omitempty"`
	MAC         MACAddress  `json:"mac,omitempty"`
	PCBRevision uint32      `json:"pcbRevision,omitempty"`
	LinkAddress uint32      `json:"linkAddress,omitempty"`
}

// MACString renders the MAC address as dash-separated hex bytes.
func (p Payload) MACString() string { return p.MAC.String() }

// MACAddress is a 6-byte Ethernet address. It marshals as AA-BB-CC-DD-EE-FF.
type MACAddress []byte

func (m MACAddress) String() string {
	parts := make([]string, len(m))
	for i, b := range m {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, "-")
}

func (m MACAddress) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MACAddress) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = nil
		return nil
	}
	parts := strings.Split(string(text), "-")
	if len(parts) != macAddressLen {
		return fmt.Errorf("ecid: malformed MAC address %q", text)
	}
	out := make(MACAddress, macAddressLen)
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return fmt.Errorf("ecid: malformed MAC address %q: %w", text, err)
		}
		out[i] = byte(v)
	}
	*m = out
	return nil
}

// Chunk is a directory record together with its decoded payload.
type Chunk struct {
	Index    int         `json:"index"`
	Record   ChunkRecord `json:"record"`
	Payload  Payload     `json:"payload"`
	Artifact string      `json:"artifact,omitempty"`
}

// ExtensionHeader describes an ExtnROM0 trailer found at a 16 KiB boundary.
type ExtensionHeader struct {
	BlockOffset      int    `json:"blockOffset"`
	HeaderOffset     int    `json:"headerOffset"`
	ROMSize          uint32 `json:"romSize"`
	StoredChecksum   uint32 `json:"storedChecksum"`
	ComputedChecksum uint32 `json:"computedChecksum"`
	OK               bool   `json:"ok"`
	Truncated        bool   `json:"truncated,omitempty"`
}

// Card is the decoded identity block.
type Card struct {
	Size            int                      `json:"size"`
	Header          Header                   `json:"header"`
	DirectoryOffset int                      `json:"directoryOffset"`
	Chunks          []Chunk                  `json:"chunks"`
	Terminated      bool                     `json:"terminated"`
	Truncated       *TruncatedDirectoryError `json:"truncated,omitempty"`
	Extensions      []ExtensionHeader        `json:"extensions"`
}
