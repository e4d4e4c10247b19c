// Package export writes directory chunks to disk and describes them in a
// JSON manifest.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/snksoft/crc"

	"example.com/podrom/internal/common"
	"example.com/podrom/internal/ecid"
)

var (
	// Crc32 is the IEEE CRC-32 used to fingerprint exported chunks.
	Crc32 = crc.NewTable(&crc.Parameters{
		Width:      32,
		Polynomial: 0x04c11db7,
		Init:       0xffffffff,
		ReflectIn:  true,
		ReflectOut: true,
		FinalXor:   0xffffffff,
	})
)

// Checksum returns the CRC-32 of data.
func Checksum(data []byte) uint32 {
	hash := crc.NewHashWithTable(Crc32)
	hash.Write(data)
	return hash.CRC32()
}

// ChunkName returns the artifact name of the index-th chunk.
func ChunkName(index int) string {
	return fmt.Sprintf("%02d.bin", index)
}

type Item struct {
	Path    string `json:"path"`
	Index   int    `json:"index"`
	OSID    uint8  `json:"osid"`
	Type    uint8  `json:"type"`
	Subtype uint8  `json:"subtype"`
	Size    uint32 `json:"size"`
	Address uint32 `json:"address"`
	Crc32   string `json:"crc32"`
	Sha256  string `json:"sha256"`
}

type Manifest struct {
	CreatedAt    time.Time `json:"createdAt"`
	Source       string    `json:"source,omitempty"`
	SourceSha256 string    `json:"sourceSha256,omitempty"`
	ShaAlgo      string    `json:"shaAlgo"`
	Items        []Item    `json:"items"`
}

// DirSink stores every chunk as NN.bin in Dir and records a manifest item
// for it. It implements ecid.ChunkSink.
type DirSink struct {
	Dir     string
	Metrics *common.Metrics

	mu    sync.Mutex
	items []Item
}

// NewDirSink returns a sink writing into dir. The directory is created on
// the first chunk.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

func (s *DirSink) WriteChunk(index int, rec ecid.ChunkRecord, data []byte) (string, error) {
	name := ChunkName(index)
	if err := common.EnsureDir(s.Dir); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	if s.Metrics != nil {
		s.Metrics.AddChunk(int64(len(data)))
	}
	item := Item{
		Path:    path,
		Index:   index,
		OSID:    rec.OSID,
		Type:    rec.Type(),
		Subtype: rec.Subtype(),
		Size:    rec.Size,
		Address: rec.Address,
		Crc32:   fmt.Sprintf("%08x", Checksum(data)),
		Sha256:  common.Sha256OfBytes(data),
	}
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
	return name, nil
}

// Items returns the chunks written so far, in directory order.
func (s *DirSink) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// Manifest describes everything the sink has written. source is the
// identity file the chunks came from and may be empty.
func (s *DirSink) Manifest(source string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), Source: source, ShaAlgo: "sha256", Items: s.Items()}
	if source != "" {
		hex, _, err := common.Sha256OfFile(source)
		if err != nil {
			return m, err
		}
		m.SourceSha256 = hex
	}
	if m.Items == nil {
		m.Items = []Item{}
	}
	return m, nil
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
