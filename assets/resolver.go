// Package assets resolves image and diagram references to embeddable data.
// All network and process access of the conversion pipeline lives here,
// behind bounded timeouts. Failures are returned to the caller which degrades
// to placeholders, they never abort a conversion.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"go.uber.org/zap"

	"mdoc/config"
	"mdoc/content"
)

const (
	emuPerPixel = 9525 // 96 dpi
	emuPerTwip  = 635

	// height allowance leaves room for a caption or following paragraph on
	// the same page
	fitHeightFactor = 0.85

	// assumed size for images whose dimensions cannot be determined
	defaultWidthEMU  = 5 * 914400
	defaultHeightEMU = 35 * 914400 / 10
)

// Resolver implements content.AssetResolver. It owns a scoped temporary
// directory for downloaded and generated files, removed by Close.
type Resolver struct {
	cfg     *config.DocumentConfig
	log     *zap.Logger
	client  *http.Client
	workDir string
	baseDir string

	maxWidthEMU  int64
	maxHeightEMU int64
}

// NewResolver creates a resolver sized to the configured page content box.
func NewResolver(cfg *config.DocumentConfig, log *zap.Logger) (*Resolver, error) {
	workDir, err := os.MkdirTemp("", "mdoc-assets-")
	if err != nil {
		return nil, fmt.Errorf("unable to create assets work directory: %w", err)
	}
	usableW := int64(cfg.Page.Width-2*cfg.Page.Margin) * emuPerTwip
	usableH := int64(cfg.Page.Height-2*cfg.Page.Margin) * emuPerTwip
	return &Resolver{
		cfg:          cfg,
		log:          log,
		client:       &http.Client{Timeout: time.Duration(cfg.Images.FetchTimeoutSec) * time.Second},
		workDir:      workDir,
		maxWidthEMU:  usableW,
		maxHeightEMU: int64(float64(usableH) * fitHeightFactor),
	}, nil
}

// Close removes the temporary directory with everything in it.
func (r *Resolver) Close() error {
	return os.RemoveAll(r.workDir)
}

// SetBaseDir sets the directory relative local references resolve against,
// normally the source document directory.
func (r *Resolver) SetBaseDir(dir string) {
	r.baseDir = dir
}

// Image resolves a local path or http(s) URL.
func (r *Resolver) Image(ctx context.Context, ref string) (*content.ResolvedAsset, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err = r.fetch(ctx, ref)
	} else {
		name := ref
		if r.baseDir != "" && !filepath.IsAbs(name) {
			name = filepath.Join(r.baseDir, name)
		}
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	return r.prepare(data, ref)
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// prepare sniffs the real format from leading bytes, converts Word-unsafe
// formats to PNG, optionally downscales oversized rasters and computes the
// final fit-to-page dimensions.
func (r *Resolver) prepare(data []byte, ref string) (*content.ResolvedAsset, error) {
	if isSVG(data) {
		png, err := rasterizeSVG(data)
		if err != nil {
			return nil, fmt.Errorf("rasterizing SVG %s: %w", ref, err)
		}
		data = png
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("unrecognized image format for %s", ref)
	}

	format := kind.Extension
	w, h, ok := rasterDimensions(data, format)

	switch format {
	case "png", "jpg":
		// embeddable as is
	case "gif", "bmp", "tif", "webp":
		data, err = convertToPNG(data)
		if err != nil {
			return nil, fmt.Errorf("converting %s image %s: %w", format, ref, err)
		}
		format = "png"
	default:
		return nil, fmt.Errorf("unsupported image format %q for %s", format, ref)
	}

	if ok && r.cfg.Images.DownscalePx > 0 && (w > r.cfg.Images.DownscalePx || h > r.cfg.Images.DownscalePx) {
		data, w, h, err = r.downscale(data, format, w, h)
		if err != nil {
			return nil, fmt.Errorf("downscaling %s: %w", ref, err)
		}
		r.log.Debug("downscaled image", zap.String("ref", ref), zap.Int("width", w), zap.Int("height", h))
	}

	a := &content.ResolvedAsset{Data: data, Format: normalizeFormat(format)}
	if ok {
		a.Width, a.Height = r.fit(int64(w)*emuPerPixel, int64(h)*emuPerPixel)
	} else {
		a.Width, a.Height = r.fit(defaultWidthEMU, defaultHeightEMU)
	}
	return a, nil
}

// fit scales dimensions down to the page content box, never up.
func (r *Resolver) fit(w, h int64) (int64, int64) {
	scale := 1.0
	if s := float64(r.maxWidthEMU) / float64(w); s < scale {
		scale = s
	}
	if s := float64(r.maxHeightEMU) / float64(h); s < scale {
		scale = s
	}
	return int64(float64(w) * scale), int64(float64(h) * scale)
}

func (r *Resolver) downscale(data []byte, format string, w, h int) ([]byte, int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	limit := r.cfg.Images.DownscalePx
	if w >= h {
		img = imaging.Resize(img, limit, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, limit, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if format == "png" {
		err = imaging.Encode(&buf, img, imaging.PNG)
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.cfg.Images.JPEGQuality))
	}
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

func convertToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeFormat(format string) string {
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

// isSVG detects SVG from leading content, it is a text format the byte
// sniffer cannot identify.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg"))
}
