package ecid

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxIdentitySize is the default limit on how much of an identity file is
// loaded.
const MaxIdentitySize = 64 * 1024

// ChunkSink receives the raw bytes of every directory chunk, in directory
// order, before the chunk's payload is decoded. It returns the name under
// which the chunk was stored.
type ChunkSink interface {
	WriteChunk(index int, rec ChunkRecord, data []byte) (string, error)
}

// Options configures Decode.
type Options struct {
	Sink ChunkSink
	// OnChunk, if set, is called after each chunk has been exported and
	// decoded.
	OnChunk func(Chunk)
}

// Decode validates buf as an identity block and decodes its header, chunk
// directory and extension ROM trailers.
//
// A *FormatError from the header yields a nil *Card. A malformed directory
// record stops the walk and is returned together with the partially decoded
// card; chunks already handed to the sink are not withdrawn. A directory
// that runs off the end of buf is not an error and is reported through
// Card.Truncated.
func Decode(buf []byte, opts Options) (*Card, error) {
	hdr, off, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	card := &Card{Size: len(buf), Header: hdr, DirectoryOffset: off, Chunks: []Chunk{}}

	var walkErr error
	if hdr.HasChunkDirectory {
		walkErr = WalkDirectory(card, buf, off, opts)
	}
	card.Extensions = ScanExtensionHeaders(buf)
	return card, walkErr
}

// WalkDirectory walks the chunk directory at off, appending every decoded
// chunk to card and recording how the walk ended.
func WalkDirectory(card *Card, buf []byte, off int, opts Options) error {
	w := NewWalker(buf, off)
	for {
		rec, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		chunk := Chunk{Index: w.Count(), Record: rec}
		if opts.Sink != nil {
			data, err := ChunkData(buf, rec)
			if err != nil {
				return err
			}
			name, err := opts.Sink.WriteChunk(chunk.Index, rec, data)
			if err != nil {
				return fmt.Errorf("export chunk %d: %w", chunk.Index, err)
			}
			chunk.Artifact = name
		}
		chunk.Payload, err = DecodePayload(rec, buf)
		if err != nil {
			return fmt.Errorf("chunk %d payload: %w", chunk.Index, err)
		}
		card.Chunks = append(card.Chunks, chunk)
		if opts.OnChunk != nil {
			opts.OnChunk(chunk)
		}
	}
	card.Terminated = w.State() == StateTerminated
	card.Truncated = w.Truncated()
	return nil
}

// Load reads at most limit bytes of an identity block from r. A limit of zero or
// less selects MaxIdentitySize.
func Load(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxIdentitySize
	}
	buf, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// LoadFile opens path and loads its identity block.
func LoadFile(path string, limit int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, limit)
}
