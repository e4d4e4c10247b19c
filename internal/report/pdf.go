package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/romsum"
)

// CardInfo carries the facts about an identity file that are not part of
// the decoded card.
type CardInfo struct {
	Source    string
	Sha256    string
	Generated time.Time
	// Verify, if set, adds the RISC OS checksum verdict of the same file.
	Verify *romsum.Result
}

// SaveCardPDF renders the decoded card into a PDF document at out.
func SaveCardPDF(card *ecid.Card, info CardInfo, out string) error {
	pdf, err := renderCardPDF(card, info)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(out)
}

// WriteCardPDF renders the decoded card into w.
func WriteCardPDF(w io.Writer, card *ecid.Card, info CardInfo) error {
	pdf, err := renderCardPDF(card, info)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func renderCardPDF(card *ecid.Card, info CardInfo) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Expansion Card Identity", false)
	pdf.SetAuthor("podrom", false)
	pdf.SetCreator("podrom", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Expansion Card Identity")
	if err := addSourceSection(pdf, info); err != nil {
		return nil, err
	}
	addIdentitySection(pdf, card.Header)
	if card.Header.HasChunkDirectory {
		addChunkSection(pdf, card)
	}
	addExtensionSection(pdf, card.Extensions)
	if info.Verify != nil {
		addChecksumSection(pdf, *info.Verify)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

type labelled struct {
	label string
	value string
}

func addLabelledRows(pdf *gofpdf.Fpdf, items []labelled) {
	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, emptyFallback(item.value, "-"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addSourceSection(pdf *gofpdf.Fpdf, info CardInfo) error {
	generated := info.Generated
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	top := pdf.GetY()
	addLabelledRows(pdf, []labelled{
		{label: "File", value: info.Source},
		{label: "SHA-256", value: shortHash(info.Sha256)},
		{label: "Generated", value: generated.Format(time.RFC3339)},
	})
	if strings.TrimSpace(info.Sha256) == "" {
		return nil
	}
	png, err := digestQR(info.Sha256, 256)
	if err != nil {
		return fmt.Errorf("render hash qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("sha256-qr", opts, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	pdf.ImageOptions("sha256-qr", pageW-right-24, top, 24, 24, false, opts, 0, "")
	if pdf.GetY() < top+26 {
		pdf.SetY(top + 26)
	}
	return nil
}

func addIdentitySection(pdf *gofpdf.Fpdf, hdr ecid.Header) {
	addSectionTitle(pdf, "Identity")
	items := []labelled{
		{label: "ID byte", value: fmt.Sprintf("&%02X (%s)", hdr.IDByte, IDFlags(hdr))},
		{label: "Chunk directory", value: presentLabel(hdr.HasChunkDirectory)},
		{label: "Interrupt pointers", value: presentLabel(hdr.HasInterruptPointers)},
		{label: "Bus width", value: fmt.Sprintf("%d bits", hdr.BusWidthBits)},
		{label: "Product ID", value: fmt.Sprintf("&%04X", hdr.ProductID)},
		{label: "Manufacturer ID", value: fmt.Sprintf("&%04X", hdr.ManufacturerID)},
		{label: "Country code", value: fmt.Sprintf("&%02X", hdr.CountryCode)},
	}
	if irq := hdr.Interrupts; irq != nil {
		items = append(items,
			labelled{label: "IRQ", value: fmt.Sprintf("mask &%02X at &%06X", irq.IRQMask, irq.IRQAddress)},
			labelled{label: "FIQ", value: fmt.Sprintf("mask &%02X at &%06X", irq.FIQMask, irq.FIQAddress)},
		)
	}
	addLabelledRows(pdf, items)
}

func addChunkSection(pdf *gofpdf.Fpdf, card *ecid.Card) {
	addSectionTitle(pdf, "Chunk Directory")

	headers := []string{"#", "OSID", "Offset", "Size", "Type", "Content"}
	widths := []float64{10, 16, 22, 18, 40, 74}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for _, c := range card.Chunks {
		content := Describe(c.Payload)
		if c.Payload.Help != "" {
			content += "\n" + c.Payload.Help
		}
		values := []string{
			strconv.Itoa(c.Index),
			fmt.Sprintf("&%02X", c.Record.OSID),
			fmt.Sprintf("&%X", c.Record.Address),
			strconv.FormatUint(uint64(c.Record.Size), 10),
			TypeLabel(c.Record.Type()),
			content,
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}

	pdf.SetFont("Helvetica", "", 10)
	switch {
	case card.Terminated:
		pdf.MultiCell(0, 5, fmt.Sprintf("%d chunk(s), directory terminated.", len(card.Chunks)), "", "L", false)
	case card.Truncated != nil:
		pdf.MultiCell(0, 5, fmt.Sprintf("%d chunk(s), directory truncated at &%X.", len(card.Chunks), card.Truncated.Offset), "", "L", false)
	}
	pdf.Ln(4)
}

func addExtensionSection(pdf *gofpdf.Fpdf, exts []ecid.ExtensionHeader) {
	addSectionTitle(pdf, "Extension ROM Headers")
	if len(exts) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No extension ROM headers found.", "", "L", false)
		pdf.Ln(4)
		return
	}
	headers := []string{"Header", "ROM size", "Stored", "Computed", "Result"}
	widths := []float64{30, 30, 40, 40, 40}
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, ext := range exts {
		result := passLabel(ext.OK)
		if ext.Truncated {
			result = "INCOMPLETE"
		}
		renderTableRow(pdf, widths, []string{
			fmt.Sprintf("&%X", ext.HeaderOffset),
			strconv.FormatUint(uint64(ext.ROMSize), 10),
			fmt.Sprintf("&%08X", ext.StoredChecksum),
			fmt.Sprintf("&%08X", ext.ComputedChecksum),
			result,
		}, 5)
	}
	pdf.Ln(4)
}

func addChecksumSection(pdf *gofpdf.Fpdf, res romsum.Result) {
	addSectionTitle(pdf, "RISC OS ROM Checksum")
	lanes := make([]string, len(res.Lanes))
	for i, lane := range res.Lanes {
		lanes[i] = fmt.Sprintf("%04X", lane)
	}
	addLabelledRows(pdf, []labelled{
		{label: "Sum", value: fmt.Sprintf("&%08X", res.Sum)},
		{label: "Expected", value: fmt.Sprintf("&%08X", res.Expected)},
		{label: "Stored", value: fmt.Sprintf("&%08X", res.Stored)},
		{label: "Checksum", value: passLabel(res.ChecksumOK)},
		{label: "CRC lanes", value: strings.Join(lanes, " ")},
		{label: "CRC", value: passLabel(res.CRCOK)},
	})
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		var lines []string
		for _, part := range strings.Split(text, "\n") {
			lines = append(lines, pdf.SplitText(part, widths[i]-2)...)
		}
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		for len(lines) < maxLines {
			lines = append(lines, "")
		}
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func shortHash(hash string) string {
	if len(hash) <= 32 {
		return hash
	}
	return hash[:32] + "..."
}
