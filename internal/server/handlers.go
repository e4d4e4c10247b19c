package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"example.com/podrom/internal/common"
	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/export"
	"example.com/podrom/internal/report"
	"example.com/podrom/internal/romsum"
)

// DecodeResponse is the body returned by POST /api/decode.
type DecodeResponse struct {
	Card      *ecid.Card    `json:"card,omitempty"`
	ExitCode  int           `json:"exitCode"`
	Error     string        `json:"error,omitempty"`
	Sha256    string        `json:"sha256"`
	Artifacts []ArtifactRef `json:"artifacts"`
	Manifest  *ArtifactRef  `json:"manifest,omitempty"`
}

// VerifyResponse is the body returned by POST /api/verify.
type VerifyResponse struct {
	romsum.Result
	OK bool `json:"ok"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody reads at most limit bytes of the request body. On failure it
// has already replied: 413 for a body longer than limit, 400 otherwise.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, fmt.Sprintf("read body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

// decodeJob runs one decode into its own artifact directory.
type decodeJob struct {
	s    *Server
	dir  string
	sink *export.DirSink
	refs []ArtifactRef
}

func (s *Server) newDecodeJob() (*decodeJob, error) {
	dir, err := s.tempDir("decode-")
	if err != nil {
		return nil, err
	}
	return &decodeJob{s: s, dir: dir, sink: export.NewDirSink(dir)}, nil
}

func (j *decodeJob) register(c ecid.Chunk) (*ArtifactRef, error) {
	if c.Artifact == "" {
		return nil, nil
	}
	ref, err := j.s.artifacts.Add(filepath.Join(j.dir, c.Artifact), c.Artifact, ArtifactChunk)
	if err != nil {
		return nil, err
	}
	j.refs = append(j.refs, ref)
	return &ref, nil
}

func (j *decodeJob) saveManifest(sha string) (*ArtifactRef, error) {
	m, err := j.sink.Manifest("")
	if err != nil {
		return nil, err
	}
	m.SourceSha256 = sha
	path := filepath.Join(j.dir, "manifest.json")
	if err := export.Save(m, path); err != nil {
		return nil, err
	}
	ref, err := j.s.artifacts.Add(path, "manifest.json", ArtifactManifest)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	buf, ok := readBody(w, r, int64(s.maxIdentitySize))
	if !ok {
		return
	}
	if r.URL.Query().Get("stream") == "true" {
		s.streamDecode(w, buf)
		return
	}
	job, err := s.newDecodeJob()
	if err != nil {
		http.Error(w, fmt.Sprintf("workspace: %v", err), http.StatusInternalServerError)
		return
	}
	var registerErr error
	card, decodeErr := ecid.Decode(buf, ecid.Options{
		Sink: job.sink,
		OnChunk: func(c ecid.Chunk) {
			if _, err := job.register(c); err != nil && registerErr == nil {
				registerErr = err
			}
		},
	})
	if registerErr != nil {
		http.Error(w, fmt.Sprintf("register artifact: %v", registerErr), http.StatusInternalServerError)
		return
	}
	resp := DecodeResponse{
		Card:      card,
		ExitCode:  ecid.ExitCode(decodeErr),
		Sha256:    common.Sha256OfBytes(buf),
		Artifacts: job.refs,
	}
	if resp.Artifacts == nil {
		resp.Artifacts = []ArtifactRef{}
	}
	if card != nil {
		if resp.Manifest, err = job.saveManifest(resp.Sha256); err != nil {
			http.Error(w, fmt.Sprintf("manifest: %v", err), http.StatusInternalServerError)
			return
		}
	}
	status := http.StatusOK
	if decodeErr != nil {
		resp.Error = decodeErr.Error()
		status = http.StatusUnprocessableEntity
	}
	log.Printf("decode: %d bytes, exit %d", len(buf), resp.ExitCode)
	writeJSON(w, status, resp)
}

func (s *Server) streamDecode(w http.ResponseWriter, buf []byte) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	nd := NewNDJSONWriter(w)
	done := func(err error) {
		code := ecid.ExitCode(err)
		ev := DecodeEvent{Event: "done", ExitCode: &code}
		if err != nil {
			ev.Error = err.Error()
		}
		nd.WriteEvent(ev)
	}

	hdr, _, err := ecid.DecodeHeader(buf)
	if err != nil {
		done(err)
		return
	}
	nd.WriteEvent(DecodeEvent{Event: "header", Header: &hdr})

	job, err := s.newDecodeJob()
	if err != nil {
		done(err)
		return
	}
	card, err := ecid.Decode(buf, ecid.Options{
		Sink: job.sink,
		OnChunk: func(c ecid.Chunk) {
			ref, regErr := job.register(c)
			ev := DecodeEvent{Event: "chunk", Chunk: &c, Artifact: ref}
			if regErr != nil {
				ev.Error = regErr.Error()
			}
			nd.WriteEvent(ev)
		},
	})
	if card != nil {
		if card.Truncated != nil {
			nd.WriteEvent(DecodeEvent{Event: "truncated", Truncated: card.Truncated})
		}
		for i := range card.Extensions {
			nd.WriteEvent(DecodeEvent{Event: "extension", Extension: &card.Extensions[i]})
		}
	}
	done(err)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	img, ok := readBody(w, r, s.maxImageSize)
	if !ok {
		return
	}
	res, err := romsum.VerifyBytes(img)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, romsum.ErrImageSize) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Result: res, OK: res.OK()})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	img, ok := readBody(w, r, s.maxImageSize)
	if !ok {
		return
	}
	res, err := romsum.PatchBytes(img)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, romsum.ErrImageSize) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	dir, err := s.tempDir("patch-")
	if err != nil {
		http.Error(w, fmt.Sprintf("workspace: %v", err), http.StatusInternalServerError)
		return
	}
	path := filepath.Join(dir, "patched.rom")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		http.Error(w, fmt.Sprintf("store image: %v", err), http.StatusInternalServerError)
		return
	}
	art, err := s.artifacts.Add(path, "patched.rom", ArtifactPatched)
	if err != nil {
		http.Error(w, fmt.Sprintf("register artifact: %v", err), http.StatusInternalServerError)
		return
	}
	lo, hi := romsum.State{Lanes: res.Lanes}.CRCWords()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("X-Podrom-Checksum", fmt.Sprintf("%08X", res.Checksum))
	w.Header().Set("X-Podrom-Crc", fmt.Sprintf("%08X%08X", hi.Uint32(), lo.Uint32()))
	w.Header().Set("X-Podrom-Artifact", art.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	buf, ok := readBody(w, r, int64(s.maxIdentitySize))
	if !ok {
		return
	}
	card, err := ecid.Decode(buf, ecid.Options{})
	if card == nil {
		writeJSON(w, http.StatusUnprocessableEntity, DecodeResponse{ExitCode: ecid.ExitCode(err), Error: err.Error(), Artifacts: []ArtifactRef{}})
		return
	}
	info := report.CardInfo{Source: r.URL.Query().Get("name"), Sha256: common.Sha256OfBytes(buf)}
	if res, verr := romsum.VerifyBytes(buf); verr == nil {
		info.Verify = &res
	}
	w.Header().Set("Content-Type", "application/pdf")
	if err := report.WriteCardPDF(w, card, info); err != nil {
		log.Printf("report: %v", err)
	}
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.artifacts.List())
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	art, ok := s.artifacts.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	http.ServeContent(w, r, art.Name, art.Created, f)
}
