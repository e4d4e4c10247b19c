package report

import (
	"fmt"
	"io"
	"strings"

	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/romsum"
)

func presentLabel(ok bool) string {
	if ok {
		return "present"
	}
	return "not present"
}

// IDFlags renders the ID byte flags, for example "Acorn-conformant w/FIQ no IRQ".
func IDFlags(hdr ecid.Header) string {
	parts := []string{}
	if hdr.Conformant() {
		parts = append(parts, "Acorn-conformant")
	}
	if hdr.HasFIQ() {
		parts = append(parts, "w/FIQ")
	} else {
		parts = append(parts, "no FIQ")
	}
	if hdr.HasIRQ() {
		parts = append(parts, "w/IRQ")
	} else {
		parts = append(parts, "no IRQ")
	}
	return strings.Join(parts, " ")
}

// TypeLabel names an OSID type.
func TypeLabel(typ uint8) string {
	switch typ {
	case ecid.TypeRISCOS:
		return "Acorn Arthur/RISC OS"
	case ecid.TypeUnix:
		return "UNIX"
	case ecid.TypeManufacturer:
		return "Manufacturer-defined data"
	case ecid.TypeDeviceData:
		return "Device data"
	default:
		return "Reserved"
	}
}

// Describe renders a decoded payload on one line.
func Describe(p ecid.Payload) string {
	switch p.Kind {
	case ecid.KindLoader, ecid.KindUnixLoader:
		return "Loader"
	case ecid.KindRelocatableModule:
		if p.Title == "" {
			return "Relocatable Module"
		}
		return "Relocatable Module: " + p.Title
	case ecid.KindBBCROM:
		return "BBC ROM"
	case ecid.KindSprite:
		return "Sprite"
	case ecid.KindManufacturerData:
		return fmt.Sprintf("subtype %d", p.Subtype)
	case ecid.KindDeviceLink:
		return fmt.Sprintf("Link to another chunk directory, addr=&%X", p.LinkAddress)
	case ecid.KindSerialNumber:
		return fmt.Sprintf("Serial number: '%s'", p.Text)
	case ecid.KindManufactureDate:
		return fmt.Sprintf("Date of Manufacture: '%s'", p.Text)
	case ecid.KindModificationStatus:
		return fmt.Sprintf("Modification status: '%s'", p.Text)
	case ecid.KindPlaceOfManufacture:
		return fmt.Sprintf("Place of manufacture: '%s'", p.Text)
	case ecid.KindDescription:
		return fmt.Sprintf("Description: '%s'", p.Text)
	case ecid.KindPartNumber:
		return fmt.Sprintf("Part number: '%s'", p.Text)
	case ecid.KindMACAddress:
		return "Ethernet MAC addr.: " + p.MACString()
	case ecid.KindPCBRevision:
		return fmt.Sprintf("PCB revision: %d", p.PCBRevision)
	case ecid.KindEmptyChunk:
		return "(Empty chunk)"
	default:
		return fmt.Sprintf("subtype %d", p.Subtype)
	}
}

// WriteCard prints a decoded identity block in the layout of the decode
// command.
func WriteCard(w io.Writer, card *ecid.Card) {
	hdr := card.Header
	fmt.Fprintf(w, "%d bytes read\n", card.Size)
	fmt.Fprintln(w, "--- EXPANSION CARD IDENTITY ---")
	fmt.Fprintf(w, "  ID byte          %02X -- %s\n", hdr.IDByte, IDFlags(hdr))
	fmt.Fprintf(w, "  Chunk directory  %s\n", presentLabel(hdr.HasChunkDirectory))
	fmt.Fprintf(w, "  Interrupt ptrs   %s\n", presentLabel(hdr.HasInterruptPointers))
	fmt.Fprintf(w, "  Bus width        %d bits\n", hdr.BusWidthBits)
	fmt.Fprintf(w, "  Product ID       &%04X\n", hdr.ProductID)
	fmt.Fprintf(w, "  Manufacturer ID  &%04X\n", hdr.ManufacturerID)
	fmt.Fprintf(w, "  Country code     &%02X\n", hdr.CountryCode)
	if irq := hdr.Interrupts; irq != nil {
		fmt.Fprintf(w, "  IRQ Bitmask      &%02X\n", irq.IRQMask)
		fmt.Fprintf(w, "  IRQ address      &%06X\n", irq.IRQAddress)
		fmt.Fprintf(w, "  FIQ Bitmask      &%02X\n", irq.FIQMask)
		fmt.Fprintf(w, "  FIQ address      &%06X\n", irq.FIQAddress)
	} else {
		fmt.Fprintln(w, "  (no interrupt pointer block present)")
	}
	fmt.Fprintln(w)

	if hdr.HasChunkDirectory {
		fmt.Fprintln(w, "--- CHUNK DIRECTORY ---")
		for _, c := range card.Chunks {
			WriteChunk(w, c)
		}
		switch {
		case card.Terminated:
			fmt.Fprintln(w, "End of chunk directory reached.")
		case card.Truncated != nil:
			fmt.Fprintf(w, "Chunk directory truncated at &%X (%d bytes left).\n", card.Truncated.Offset, card.Truncated.Remaining)
		}
		fmt.Fprintln(w)
	}

	WriteExtensions(w, card.Extensions)
}

// WriteChunk prints one chunk entry.
func WriteChunk(w io.Writer, c ecid.Chunk) {
	rec := c.Record
	fmt.Fprintf(w, "Chunk %d:\n", c.Index)
	fmt.Fprintf(w, "  Offset &%X, %d bytes (ends at &%X)\n", rec.Address, rec.Size, rec.End())
	if c.Artifact != "" {
		fmt.Fprintf(w, "  Saved as '%s'\n", c.Artifact)
	}
	fmt.Fprintf(w, "  Type %d: %s, %s\n", rec.Type(), TypeLabel(rec.Type()), Describe(c.Payload))
	if c.Payload.Help != "" {
		fmt.Fprintf(w, "    %s\n", c.Payload.Help)
	}
	fmt.Fprintln(w)
}

// WriteExtensions prints the extension ROM headers found in an image.
func WriteExtensions(w io.Writer, exts []ecid.ExtensionHeader) {
	fmt.Fprintln(w, "--- Extension ROM headers ---")
	for _, ext := range exts {
		fmt.Fprintf(w, "  Header seen at &%X\n", ext.HeaderOffset)
		fmt.Fprintf(w, "    ROM size %d bytes\n", ext.ROMSize)
		fmt.Fprintf(w, "    Checksum &%08X\n", ext.StoredChecksum)
		switch {
		case ext.OK:
			fmt.Fprintln(w, "      OK")
		case ext.Truncated:
			fmt.Fprintf(w, "      INCOMPLETE: ROM extends past the loaded &%X bytes, calculated &%08X\n", ext.ROMSize, ext.ComputedChecksum)
		default:
			fmt.Fprintf(w, "      BAD: ROM CS &%08X, calculated &%08X\n", ext.StoredChecksum, ext.ComputedChecksum)
		}
	}
}

// WriteVerify prints the outcome of a checksum and CRC verification.
func WriteVerify(w io.Writer, res romsum.Result) {
	fmt.Fprintf(w, "sum accum: %08X\n", res.Sum)
	fmt.Fprintf(w, "expected : %08X\n", res.Expected)
	fmt.Fprintf(w, "read csum: %08X\n", res.Stored)
	if res.ChecksumOK {
		fmt.Fprintln(w, "checksum is OKAY!")
	} else {
		fmt.Fprintln(w, "checksum is incorrect")
	}
	fmt.Fprintln(w, "CRC:")
	for i, lane := range res.Lanes {
		fmt.Fprintf(w, "  crc[%d] = 0x%04X\n", i, lane)
	}
	if res.CRCOK {
		fmt.Fprintln(w, "--> CRC good!")
	} else {
		fmt.Fprintln(w, "--> CRC bad :(")
	}
}

// WritePatch prints the values written by a patch run.
func WritePatch(w io.Writer, res romsum.PatchResult) {
	fmt.Fprintf(w, "Setting ts_Rom_length to 0x%08X (%d bytes = %d MiB)\n", res.Length, res.Length, res.Length/(1<<20))
	fmt.Fprintf(w, "Patching additive checksum... &%08X\n", res.Checksum)
	fmt.Fprintln(w, "Patching CRC...")
	for i, lane := range res.Lanes {
		fmt.Fprintf(w, "  crc[%d] = 0x%04X\n", i, lane)
	}
}
