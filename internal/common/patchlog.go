package common

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PatchEntry captures a single in-place modification to a ROM image.
type PatchEntry struct {
	Field     string    `json:"field"`
	Image     string    `json:"image,omitempty"`
	Offset    int64     `json:"offset"`
	BeforeHex string    `json:"beforeHex"`
	AfterHex  string    `json:"afterHex"`
	Ts        time.Time `json:"ts"`
}

// NewPatchEntry records the bytes at offset before and after an edit.
func NewPatchEntry(field, image string, offset int64, before, after []byte) PatchEntry {
	return PatchEntry{
		Field:     field,
		Image:     image,
		Offset:    offset,
		BeforeHex: hex.EncodeToString(before),
		AfterHex:  hex.EncodeToString(after),
	}
}

// BeforeBytes decodes the hexadecimal representation of the bytes present before
// the patch was applied.
func (p PatchEntry) BeforeBytes() ([]byte, error) {
	if strings.TrimSpace(p.BeforeHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(p.BeforeHex)
}

// AfterBytes decodes the hexadecimal representation of the bytes written by the
// auto-fix.
func (p PatchEntry) AfterBytes() ([]byte, error) {
	if strings.TrimSpace(p.AfterHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(p.AfterHex)
}

// PatchLog provides append-only access to a JSONL audit log.
type PatchLog struct {
	path string
	mu   sync.Mutex
}

// NewPatchLog returns a PatchLog that writes to the provided path.
func NewPatchLog(path string) *PatchLog {
	return &PatchLog{path: path}
}

// Path returns the backing file path for the log.
func (p *PatchLog) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Append writes a new entry to the audit log. Entries are serialized as
// JSON objects, one per line, to make downstream consumption and replay
// straightforward.
func (p *PatchLog) Append(entry PatchEntry) error {
	if p == nil {
		return errors.New("nil patch log")
	}
	if entry.Field == "" {
		return errors.New("patch entry missing field")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := EnsureDir(filepath.Dir(p.path)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadPatchLog loads every entry from the supplied JSONL file.
func ReadPatchLog(path string) ([]PatchEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []PatchEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry PatchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode patch entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReaderWriterAt is the random access Revert needs.
type ReaderWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// RevertResult summarises a Revert run.
type RevertResult struct {
	Applied    int
	Skipped    int
	Mismatches int
}

// Revert writes the recorded before bytes of every entry back into f,
// newest entry first. An entry whose after bytes are not found at its
// offset is still reverted and counted as a mismatch.
func Revert(f ReaderWriterAt, entries []PatchEntry) (RevertResult, error) {
	var res RevertResult
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		before, err := entry.BeforeBytes()
		if err != nil {
			Logf("skip entry %d: decode beforeHex failed: %v", i, err)
			res.Skipped++
			continue
		}
		after, err := entry.AfterBytes()
		if err != nil {
			Logf("skip entry %d: decode afterHex failed: %v", i, err)
			res.Skipped++
			continue
		}
		if entry.Offset < 0 {
			Logf("skip entry %d: invalid offset %d", i, entry.Offset)
			res.Skipped++
			continue
		}
		mismatch := len(after) != len(before)
		if len(after) > 0 {
			buf := make([]byte, len(after))
			if _, err := f.ReadAt(buf, entry.Offset); err != nil || !bytes.Equal(buf, after) {
				mismatch = true
			}
		}
		if len(before) > 0 {
			if _, err := f.WriteAt(before, entry.Offset); err != nil {
				return res, fmt.Errorf("revert %s at %d: %w", entry.Field, entry.Offset, err)
			}
		}
		if mismatch {
			res.Mismatches++
		}
		res.Applied++
	}
	return res, nil
}
