package server

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"example.com/podrom/internal/ecid"
)

// DefaultMaxImageSize bounds the ROM images accepted by verify and patch.
const DefaultMaxImageSize = 64 << 20

// Server holds the daemon's limits and the files produced by decode and
// patch requests. Each request writes into its own directory under a
// private workspace that Close removes.
type Server struct {
	artifacts       *ArtifactStore
	workDir         string
	maxIdentitySize int
	maxImageSize    int64
}

// Options configures server creation.
type Options struct {
	StorageDir      string
	MaxIdentitySize int
	MaxImageSize    int64
}

// ArtifactKind classifies a stored file.
type ArtifactKind string

const (
	ArtifactChunk    ArtifactKind = "chunk"
	ArtifactManifest ArtifactKind = "manifest"
	ArtifactPatched  ArtifactKind = "patched"
)

func (k ArtifactKind) contentType() string {
	if k == ArtifactManifest {
		return "application/json"
	}
	return "application/octet-stream"
}

// Artifact is a file on disk that clients may download by ID.
type Artifact struct {
	ArtifactRef
	Path    string
	Created time.Time
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	ContentType string       `json:"contentType,omitempty"`
	Size        int64        `json:"size,omitempty"`
	Kind        ArtifactKind `json:"kind,omitempty"`
}

// ArtifactStore indexes artifacts by ID. It is safe for concurrent use.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

func newArtifactStore() *ArtifactStore {
	return &ArtifactStore{entries: make(map[string]Artifact)}
}

// Add registers the file at path under name and returns its reference.
func (a *ArtifactStore) Add(path, name string, kind ArtifactKind) (ArtifactRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ArtifactRef{}, err
	}
	art := Artifact{
		ArtifactRef: ArtifactRef{
			ID:          strings.ToLower(rand.Text()),
			Name:        name,
			ContentType: kind.contentType(),
			Size:        info.Size(),
			Kind:        kind,
		},
		Path:    path,
		Created: info.ModTime(),
	}
	a.mu.Lock()
	a.entries[art.ID] = art
	a.mu.Unlock()
	return art.ArtifactRef, nil
}

func (a *ArtifactStore) Get(id string) (Artifact, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	art, ok := a.entries[id]
	return art, ok
}

// List returns every artifact ordered by kind, then name.
func (a *ArtifactStore) List() []ArtifactRef {
	a.mu.RLock()
	refs := make([]ArtifactRef, 0, len(a.entries))
	for _, art := range a.entries {
		refs = append(refs, art.ArtifactRef)
	}
	a.mu.RUnlock()
	slices.SortFunc(refs, func(x, y ArtifactRef) int {
		if c := strings.Compare(string(x.Kind), string(y.Kind)); c != 0 {
			return c
		}
		return strings.Compare(x.Name, y.Name)
	})
	return refs
}

// NewServer creates the server's workspace under opts.StorageDir, or under
// the system temporary directory when none is given.
func NewServer(opts Options) (*Server, error) {
	root := opts.StorageDir
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(root, "podromd-")
	if err != nil {
		return nil, err
	}
	s := &Server{
		artifacts:       newArtifactStore(),
		workDir:         workDir,
		maxIdentitySize: opts.MaxIdentitySize,
		maxImageSize:    opts.MaxImageSize,
	}
	if s.maxIdentitySize <= 0 {
		s.maxIdentitySize = ecid.MaxIdentitySize
	}
	if s.maxImageSize <= 0 {
		s.maxImageSize = DefaultMaxImageSize
	}
	return s, nil
}

// Close removes the workspace and every artifact in it.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempDir(prefix string) (string, error) {
	return os.MkdirTemp(s.workDir, prefix)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
