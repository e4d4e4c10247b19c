package rombuild

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/pathrules"

	"example.com/podrom/internal/common"
	"example.com/podrom/internal/ecid"
)

const (
	fillByte = 0xFF
	// the identity header plus an all-zero interrupt block
	identitySize  = 16
	entrySize     = 8
	maxChunkSize  = 0xFFFFFF
	lengthWordLen = 4
)

// ErrCollision is returned when the chunk bodies run into the directory.
var ErrCollision = errors.New("rombuild: chunk collides with the chunk directory")

// Chunk is a chunk waiting to be placed.
type Chunk struct {
	Name    string
	Type    uint8
	Subtype uint8
	Data    []byte
}

// Placement records where a chunk ended up in the image.
type Placement struct {
	Name    string `json:"name"`
	OSID    uint8  `json:"osid"`
	Address uint32 `json:"address"`
	Size    uint32 `json:"size"`
	Padding int    `json:"padding"`
}

// Image is a built ROM.
type Image struct {
	Data       []byte      `json:"-"`
	Placements []Placement `json:"placements"`
	Checksum   uint32      `json:"checksum"`
}

// Chunks returns the chunks cfg asks for, in the order they are placed:
// manufacturer data first, then the listed modules, then the modules
// selected from the module directory.
func Chunks(cfg Config) ([]Chunk, error) {
	var chunks []Chunk
	if md := cfg.ManufacturerData; md != nil {
		strs := []struct {
			name    string
			subtype uint8
			value   string
		}{
			{"serial", ecid.DeviceSerialNumber, md.Serial},
			{"mfgDate", ecid.DeviceManufactureDate, md.MfgDate},
			{"modStatus", ecid.DeviceModificationStatus, md.ModStatus},
			{"mfgPlace", ecid.DevicePlaceOfManufacture, md.MfgPlace},
			{"description", ecid.DeviceDescription, md.Description},
			{"partNumber", ecid.DevicePartNumber, md.PartNumber},
		}
		for _, s := range strs {
			if s.value == "" {
				continue
			}
			data, err := latin1(s.value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.name, err)
			}
			chunks = append(chunks, Chunk{Name: s.name, Type: ecid.TypeDeviceData, Subtype: s.subtype, Data: append(data, 0)})
		}
		if md.MACAddress != "" {
			mac, err := net.ParseMAC(md.MACAddress)
			if err != nil {
				return nil, fmt.Errorf("macAddress: %w", err)
			}
			if len(mac) != 6 {
				return nil, fmt.Errorf("macAddress: %q is not a 6-byte address", md.MACAddress)
			}
			chunks = append(chunks, Chunk{Name: "macAddress", Type: ecid.TypeDeviceData, Subtype: ecid.DeviceMACAddress, Data: []byte(mac)})
		}
		if md.PCBRevision != nil {
			data := binary.LittleEndian.AppendUint32(nil, *md.PCBRevision)
			chunks = append(chunks, Chunk{Name: "pcbRevision", Type: ecid.TypeDeviceData, Subtype: ecid.DevicePCBRevision, Data: data})
		}
	}

	modules := append([]string(nil), cfg.Modules...)
	if cfg.ModuleDir != nil {
		selected, err := SelectModules(*cfg.ModuleDir)
		if err != nil {
			return nil, err
		}
		modules = append(modules, selected...)
	}
	for _, path := range modules {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read module: %w", err)
		}
		chunks = append(chunks, Chunk{Name: path, Type: ecid.TypeRISCOS, Subtype: 1, Data: data})
	}
	return chunks, nil
}

func latin1(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("%q is not representable in Latin-1", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// SelectModules lists the files under dir.Path accepted by its include and
// exclude patterns, sorted by relative path. With no include patterns every
// file is a candidate.
func SelectModules(dir ModuleDir) ([]string, error) {
	rules := make([]pathrules.Rule, 0, len(dir.Include)+len(dir.Exclude))
	for _, p := range dir.Include {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: normalizePattern(p)})
	}
	for _, p := range dir.Exclude {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: normalizePattern(p)})
	}
	defaultAction := pathrules.ActionExclude
	if len(dir.Include) == 0 {
		defaultAction = pathrules.ActionInclude
	}
	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: dir.CaseInsensitive,
		DefaultAction:   defaultAction,
	})
	if err != nil {
		return nil, fmt.Errorf("rombuild: compile module rules: %w", err)
	}

	var rels []string
	err = filepath.WalkDir(dir.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir.Path, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matcher.Included(rel, false) {
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rombuild: scan module dir: %w", err)
	}
	sort.Strings(rels)
	out := make([]string, len(rels))
	for i, rel := range rels {
		out[i] = filepath.Join(dir.Path, filepath.FromSlash(rel))
	}
	return out, nil
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, `/`)
	return strings.TrimPrefix(p, "./")
}

// Build assembles the ROM described by cfg.
func Build(cfg Config) (*Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chunks, err := Chunks(cfg)
	if err != nil {
		return nil, err
	}
	return Assemble(cfg, chunks)
}

// Assemble lays out chunks in a ROM of cfg.Size() bytes. Every chunk body is
// preceded by a length word holding its size plus four and starts on a word
// boundary. Bodies are packed downward from below the trailer; directory
// entries grow upward from offset 16.
func Assemble(cfg Config, chunks []Chunk) (*Image, error) {
	size := cfg.Size()
	if size < identitySize+ecid.ExtensionTrailerSize {
		return nil, fmt.Errorf("rombuild: ROM of %d bytes is too small", size)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fillByte
	}

	// Acorn-conformant, no FIQ or IRQ; interrupt block and chunk directory
	// present; byte-wide bus.
	buf[0] = 0x00
	buf[1] = 0x03
	buf[2] = 0x00
	binary.LittleEndian.PutUint16(buf[3:], uint16(cfg.ProductID()))
	binary.LittleEndian.PutUint16(buf[5:], uint16(cfg.Manufacturer))
	buf[7] = uint8(cfg.Country)
	binary.LittleEndian.PutUint64(buf[8:], 0)

	img := &Image{Data: buf}
	dir := identitySize
	addr := size - ecid.ExtensionTrailerSize
	for _, c := range chunks {
		n := len(c.Data)
		if n == 0 || n >= maxChunkSize {
			return nil, fmt.Errorf("rombuild: chunk %s has unsupported size %d", c.Name, n)
		}
		pad := (4 - n%4) % 4
		addr -= n + lengthWordLen + pad
		// room for this entry, the next one and the terminator
		if addr <= dir+12 {
			return nil, fmt.Errorf("%w: %s needs %d bytes", ErrCollision, c.Name, n+lengthWordLen+pad)
		}
		binary.LittleEndian.PutUint32(buf[addr:], uint32(n+lengthWordLen))
		copy(buf[addr+lengthWordLen:], c.Data)

		osid := ecid.OSID(c.Type, c.Subtype)
		binary.LittleEndian.PutUint32(buf[dir:], uint32(osid)|uint32(n)<<8)
		binary.LittleEndian.PutUint32(buf[dir+4:], uint32(addr+lengthWordLen))
		dir += entrySize

		img.Placements = append(img.Placements, Placement{
			Name:    c.Name,
			OSID:    osid,
			Address: uint32(addr + lengthWordLen),
			Size:    uint32(n),
			Padding: pad,
		})
	}
	binary.LittleEndian.PutUint32(buf[dir:], 0)

	trailer := size - ecid.ExtensionTrailerSize
	binary.LittleEndian.PutUint32(buf[trailer:], uint32(size))
	copy(buf[size-len(ecid.ExtensionMagic):], ecid.ExtensionMagic)
	img.Checksum, _ = ecid.AdditiveSum(buf, uint32(size))
	binary.LittleEndian.PutUint32(buf[trailer+4:], img.Checksum)
	return img, nil
}

// WriteFile builds the ROM described by cfg and writes it to cfg.Filename.
func WriteFile(cfg Config) (*Image, error) {
	img, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := common.EnsureDir(filepath.Dir(cfg.Filename)); err != nil {
		return nil, err
	}
	if err := os.WriteFile(cfg.Filename, img.Data, 0o644); err != nil {
		return nil, err
	}
	return img, nil
}
