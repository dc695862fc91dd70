package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mdoc/config"
)

func testConfig() *config.DocumentConfig {
	return &config.DocumentConfig{
		Page: config.PageConfig{Width: 11906, Height: 16838, Margin: 1440},
		Images: config.ImagesConfig{
			FetchTimeoutSec: 5,
			DownscalePx:     2048,
			JPEGQuality:     85,
		},
		Diagrams: config.DiagramsConfig{
			ServiceURL:      "https://mermaid.ink",
			MaxURLLength:    2000,
			FetchTimeoutSec: 5,
			Tool:            "mmdc",
			ToolTimeoutSec:  10,
		},
	}
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPNGDimensions(t *testing.T) {
	w, h, ok := pngDimensions(pngBytes(t, 123, 45))
	if !ok || w != 123 || h != 45 {
		t.Fatalf("got %dx%d ok=%v", w, h, ok)
	}
	if _, _, ok := pngDimensions([]byte("not a png")); ok {
		t.Error("accepted junk")
	}
}

func TestJPEGDimensions(t *testing.T) {
	// minimal SOI + APP0 + SOF0 sequence
	data := []byte{
		0xFF, 0xD8,
		0xFF, 0xE0, 0x00, 0x04, 0x00, 0x00,
		0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x01, 0x90, 0x02, 0x80, 0x01, 0x00, 0x00, 0x00,
	}
	w, h, ok := jpegDimensions(data)
	if !ok || w != 640 || h != 400 {
		t.Fatalf("got %dx%d ok=%v", w, h, ok)
	}
	if _, _, ok := jpegDimensions([]byte{0xFF, 0xD8}); ok {
		t.Error("accepted truncated data")
	}
}

func TestFitNeverUpscales(t *testing.T) {
	r := newTestResolver(t)
	// small image stays as is
	w, h := r.fit(914400, 914400)
	if w != 914400 || h != 914400 {
		t.Errorf("small image scaled: %dx%d", w, h)
	}
	// wide image clamps to content width, aspect preserved
	w, h = r.fit(4*r.maxWidthEMU, 2*r.maxWidthEMU)
	if w != r.maxWidthEMU {
		t.Errorf("width = %d, want %d", w, r.maxWidthEMU)
	}
	if h != r.maxWidthEMU/2 {
		t.Errorf("height = %d, want %d", h, r.maxWidthEMU/2)
	}
	// tall image clamps to content height
	_, h = r.fit(r.maxHeightEMU, 3*r.maxHeightEMU)
	if h != r.maxHeightEMU {
		t.Errorf("height = %d, want %d", h, r.maxHeightEMU)
	}
}

func TestImageLocalFile(t *testing.T) {
	r := newTestResolver(t)
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, pngBytes(t, 200, 100), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := r.Image(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != "png" {
		t.Errorf("format = %q", a.Format)
	}
	if a.Width != 200*emuPerPixel || a.Height != 100*emuPerPixel {
		t.Errorf("dimensions = %dx%d", a.Width, a.Height)
	}
}

func TestImageFormatSniffedNotExtension(t *testing.T) {
	r := newTestResolver(t)
	// PNG content behind a jpg name
	path := filepath.Join(t.TempDir(), "pic.jpg")
	if err := os.WriteFile(path, pngBytes(t, 10, 10), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := r.Image(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != "png" {
		t.Errorf("format = %q, want png from content sniffing", a.Format)
	}
}

func TestImageRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write(pngBytes(t, 50, 50))
	}))
	defer srv.Close()

	r := newTestResolver(t)
	a, err := r.Image(context.Background(), srv.URL+"/img.png")
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != "png" || a.Width != 50*emuPerPixel {
		t.Errorf("asset = %+v", a)
	}
}

func TestImageRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))
	defer srv.Close()

	r := newTestResolver(t)
	if _, err := r.Image(context.Background(), srv.URL+"/gone.png"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestImageUnrecognizedData(t *testing.T) {
	r := newTestResolver(t)
	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("definitely not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Image(context.Background(), path); err == nil {
		t.Fatal("expected error for unrecognized content")
	}
}

func TestDiagramRemoteURLCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.Diagrams.MaxURLLength = 64
	r, err := NewResolver(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	long := bytes.Repeat([]byte("graph TD; A-->B;"), 32)
	if _, err := r.diagramRemote(context.Background(), string(long)); err == nil {
		t.Fatal("expected oversized payload to be skipped")
	}
}

func TestDiagramRemote(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		_, _ = w.Write(pngBytes(t, 30, 30))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Diagrams.ServiceURL = srv.URL
	r, err := NewResolver(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	const source = "graph TD; A-->B;"
	a, err := r.Diagram(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != "png" {
		t.Errorf("format = %q", a.Format)
	}

	// unpadded base64url under the /img/ path
	if strings.Contains(gotPath, "=") {
		t.Errorf("padded encoding in request path: %q", gotPath)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(gotPath, "/img/"))
	if err != nil || string(decoded) != source {
		t.Errorf("request path %q does not round-trip the source: %v", gotPath, err)
	}
}

func TestSVGRasterized(t *testing.T) {
	r := newTestResolver(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50" fill="red"/></svg>`
	path := filepath.Join(t.TempDir(), "box.svg")
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := r.Image(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Format != "png" {
		t.Errorf("format = %q, want rasterized png", a.Format)
	}
}

func TestCloseRemovesWorkDir(t *testing.T) {
	r, err := NewResolver(testConfig(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	dir := r.workDir
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("work directory still present: %v", err)
	}
}
