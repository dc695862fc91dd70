package assets

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const defaultSVGSize = 1024

// maxSVGRasterDim caps the rasterization buffer so a hostile viewBox cannot
// trigger a multi-gigabyte allocation.
const maxSVGRasterDim = 8192

// rasterizeSVG renders SVG content to PNG at its viewBox size.
func rasterizeSVG(data []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	w := icon.ViewBox.W
	h := icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}
	if w > maxSVGRasterDim || h > maxSVGRasterDim {
		scale := math.Min(maxSVGRasterDim/w, maxSVGRasterDim/h)
		w *= scale
		h *= scale
	}
	pw, ph := int(math.Ceil(w)), int(math.Ceil(h))

	icon.SetTarget(0, 0, w, h)
	rgba := image.NewRGBA(image.Rect(0, 0, pw, ph))
	scanner := rasterx.NewScannerGV(pw, ph, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
