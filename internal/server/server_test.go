package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"example.com/podrom/internal/ecid"
	"example.com/podrom/internal/rombuild"
	"example.com/podrom/internal/romsum"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.StorageDir == "" {
		opts.StorageDir = filepath.Join(t.TempDir(), "storage")
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	router, err := NewRouter(srv)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func podromImage(t *testing.T) []byte {
	t.Helper()
	cfg := rombuild.Config{ROMSize: 16, Manufacturer: 0x50, Country: 1}
	img, err := rombuild.Assemble(cfg, []rombuild.Chunk{
		{Name: "serial", Type: ecid.TypeDeviceData, Subtype: ecid.DeviceSerialNumber, Data: []byte("SN-0001\x00")},
		{Name: "desc", Type: ecid.TypeDeviceData, Subtype: ecid.DeviceDescription, Data: []byte("Test card\x00")},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return img.Data
}

func post(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDecodeAndDownloadChunks(t *testing.T) {
	ts := newTestServer(t, Options{})
	img := podromImage(t)

	resp := post(t, ts.URL+"/api/decode", img)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out DecodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ExitCode != 0 || out.Card == nil {
		t.Fatalf("response = %+v", out)
	}
	if len(out.Card.Chunks) != 2 || !out.Card.Terminated {
		t.Fatalf("card chunks = %d terminated = %v", len(out.Card.Chunks), out.Card.Terminated)
	}
	if got := out.Card.Chunks[0].Payload.Text; got != "SN-0001" {
		t.Fatalf("serial = %q", got)
	}
	if len(out.Artifacts) != 2 || out.Manifest == nil {
		t.Fatalf("artifacts = %+v manifest = %+v", out.Artifacts, out.Manifest)
	}

	dl, err := http.Get(ts.URL + "/api/artifacts/" + out.Artifacts[0].ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	data, _ := io.ReadAll(dl.Body)
	if dl.StatusCode != http.StatusOK || string(data) != "SN-0001\x00" {
		t.Fatalf("download status = %d body = %q", dl.StatusCode, data)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "01.bin") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	list, err := http.Get(ts.URL + "/api/artifacts")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer list.Body.Close()
	var refs []ArtifactRef
	if err := json.NewDecoder(list.Body).Decode(&refs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("listed %d artifacts, want 3", len(refs))
	}
	if refs[0].Kind != ArtifactChunk || refs[2].Kind != ArtifactManifest || refs[2].ContentType != "application/json" {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestDecodeRejectsReservedBits(t *testing.T) {
	ts := newTestServer(t, Options{})
	img := podromImage(t)
	img[0] |= 0x80

	resp := post(t, ts.URL+"/api/decode", img)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out DecodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ExitCode != -3 || out.Card != nil || out.Error == "" {
		t.Fatalf("response = %+v", out)
	}
}

func TestDecodeSizeLimit(t *testing.T) {
	ts := newTestServer(t, Options{MaxIdentitySize: 1024})
	resp := post(t, ts.URL+"/api/decode", podromImage(t))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestDecodeStream(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/decode?stream=true", podromImage(t))
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var events []DecodeEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev DecodeEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("unmarshal %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev.Event)
	}
	want := "header,chunk,chunk,extension,done"
	if got := strings.Join(kinds, ","); got != want {
		t.Fatalf("events = %s, want %s", got, want)
	}
	if events[1].Artifact == nil || events[1].Chunk.Artifact != "01.bin" {
		t.Fatalf("first chunk event = %+v", events[1])
	}
	last := events[len(events)-1]
	if last.ExitCode == nil || *last.ExitCode != 0 {
		t.Fatalf("done event = %+v", last)
	}
}

func TestPatchThenVerify(t *testing.T) {
	ts := newTestServer(t, Options{})
	img := make([]byte, 8192)
	rand.New(rand.NewSource(11)).Read(img)

	resp := post(t, ts.URL+"/api/patch", img)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	patched, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read patched: %v", err)
	}
	if len(patched) != len(img) {
		t.Fatalf("patched length = %d", len(patched))
	}
	want, err := romsum.PatchBytes(img)
	if err != nil {
		t.Fatalf("PatchBytes: %v", err)
	}
	if got := resp.Header.Get("X-Podrom-Checksum"); got != fmt.Sprintf("%08X", want.Checksum) {
		t.Fatalf("X-Podrom-Checksum = %q, want %08X", got, want.Checksum)
	}
	if !bytes.Equal(patched, img) {
		t.Fatalf("served image differs from a local patch")
	}

	vr := post(t, ts.URL+"/api/verify", patched)
	defer vr.Body.Close()
	var res VerifyResponse
	if err := json.NewDecoder(vr.Body).Decode(&res); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !res.OK || !res.ChecksumOK || !res.CRCOK {
		t.Fatalf("verify = %+v", res)
	}
}

func TestVerifyRejectsOddSize(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/verify", make([]byte, 1023))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReportPDF(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp := post(t, ts.URL+"/api/report?name=card.bin", podromImage(t))
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("status = %d, body prefix = %q", resp.StatusCode, body[:min(len(body), 8)])
	}
}

func TestArtifactNotFound(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/api/artifacts/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestReadBodyErrorIsBadRequest(t *testing.T) {
	srv, err := NewServer(Options{StorageDir: filepath.Join(t.TempDir(), "storage")})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()
	router, err := NewRouter(srv)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	for _, path := range []string{"/api/decode", "/api/verify", "/api/patch", "/api/report"} {
		req := httptest.NewRequest(http.MethodPost, path, io.NopCloser(failingBody{}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/verify", bytes.NewReader(make([]byte, 2048)))
	rec := httptest.NewRecorder()
	small, err := NewServer(Options{StorageDir: filepath.Join(t.TempDir(), "small"), MaxImageSize: 1024})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer small.Close()
	small.handleVerify(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized status = %d, want 413", rec.Code)
	}
}
