// Package rombuild assembles podule ROM images: an expansion card identity
// with a chunk directory, the chunk bodies packed down from the top of the
// ROM and an ExtnROM0 trailer.
package rombuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultProduct  = 0x87
	DefaultFilename = "rom.bin"
)

// ManufacturerData holds the device data strings and values written as
// type 7 chunks.
type ManufacturerData struct {
	Serial      string  `yaml:"serial"`
	MfgDate     string  `yaml:"mfgDate"`
	ModStatus   string  `yaml:"modStatus"`
	MfgPlace    string  `yaml:"mfgPlace"`
	Description string  `yaml:"description"`
	PartNumber  string  `yaml:"partNumber"`
	MACAddress  string  `yaml:"macAddress"`
	PCBRevision *uint32 `yaml:"pcbRevision"`
}

// ModuleDir selects relocatable modules from a directory tree. Patterns use
// gitignore-style globs over slash-separated paths relative to Path; a later
// matching pattern overrides an earlier one and excludes are applied after
// includes.
type ModuleDir struct {
	Path            string   `yaml:"path"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	CaseInsensitive bool     `yaml:"caseInsensitive"`
}

// Config describes a ROM to build.
type Config struct {
	// ROMSize is the image size in KiB.
	ROMSize          int               `yaml:"romSize"`
	Product          *int              `yaml:"product"`
	Manufacturer     int               `yaml:"manufacturer"`
	Country          int               `yaml:"country"`
	Filename         string            `yaml:"filename"`
	ManufacturerData *ManufacturerData `yaml:"manufacturerData"`
	Modules          []string          `yaml:"modules"`
	ModuleDir        *ModuleDir        `yaml:"moduleDir"`
}

// LoadConfig reads a YAML build description. Relative module and output
// paths are resolved against the directory holding the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.applyDefaults()
	cfg.Filename = resolvePath(cfg.Filename)
	for i, m := range cfg.Modules {
		cfg.Modules[i] = resolvePath(m)
	}
	if cfg.ModuleDir != nil {
		cfg.ModuleDir.Path = resolvePath(cfg.ModuleDir.Path)
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) applyDefaults() {
	if cfg.Product == nil {
		product := DefaultProduct
		cfg.Product = &product
	}
	if strings.TrimSpace(cfg.Filename) == "" {
		cfg.Filename = DefaultFilename
	}
}

// ProductID returns the configured product ID or the default.
func (cfg Config) ProductID() int {
	if cfg.Product == nil {
		return DefaultProduct
	}
	return *cfg.Product
}

// Size returns the image size in bytes.
func (cfg Config) Size() int { return cfg.ROMSize * 1024 }

// Validate checks the ranges of the header fields and the ROM size.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.ROMSize <= 0 || cfg.ROMSize%16 != 0 {
		errs = append(errs, fmt.Errorf("romSize must be a positive multiple of 16 KiB, got %d", cfg.ROMSize))
	}
	if p := cfg.ProductID(); p < 0 || p > 0xFFFF {
		errs = append(errs, fmt.Errorf("product %#x does not fit in 16 bits", p))
	}
	if cfg.Manufacturer < 0 || cfg.Manufacturer > 0xFFFF {
		errs = append(errs, fmt.Errorf("manufacturer %#x does not fit in 16 bits", cfg.Manufacturer))
	}
	if cfg.Country < 0 || cfg.Country > 0xFF {
		errs = append(errs, fmt.Errorf("country %#x does not fit in 8 bits", cfg.Country))
	}
	if cfg.ModuleDir != nil && strings.TrimSpace(cfg.ModuleDir.Path) == "" {
		errs = append(errs, errors.New("moduleDir.path is required"))
	}
	return errors.Join(errs...)
}
