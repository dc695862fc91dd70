package assets

import (
	"bytes"
	"encoding/binary"
	"image"

	// register decoders for the DecodeConfig fallback and PNG conversion
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// rasterDimensions returns pixel dimensions. PNG and JPEG are parsed straight
// from header bytes, other formats go through the registered decoders.
func rasterDimensions(data []byte, format string) (w, h int, ok bool) {
	switch format {
	case "png":
		return pngDimensions(data)
	case "jpg":
		return jpegDimensions(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// pngDimensions reads width and height from the IHDR chunk, which the format
// requires to be first.
func pngDimensions(data []byte) (int, int, bool) {
	if len(data) < 24 || !bytes.HasPrefix(data, pngSignature) {
		return 0, 0, false
	}
	if !bytes.Equal(data[12:16], []byte("IHDR")) {
		return 0, 0, false
	}
	w := binary.BigEndian.Uint32(data[16:20])
	h := binary.BigEndian.Uint32(data[20:24])
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	return int(w), int(h), true
}

// jpegDimensions walks marker segments to the first start-of-frame and reads
// the sample dimensions from it.
func jpegDimensions(data []byte) (int, int, bool) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, false
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		// standalone markers have no length field
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if i+4 > len(data) {
			break
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if isSOF(marker) {
			if i+9 > len(data) {
				break
			}
			h := int(binary.BigEndian.Uint16(data[i+5 : i+7]))
			w := int(binary.BigEndian.Uint16(data[i+7 : i+9]))
			if w == 0 || h == 0 {
				return 0, 0, false
			}
			return w, h, true
		}
		i += 2 + length
	}
	return 0, 0, false
}

func isSOF(marker byte) bool {
	switch marker {
	case 0xC4, 0xC8, 0xCC: // DHT, JPG, DAC share the SOF numbering range
		return false
	}
	return marker >= 0xC0 && marker <= 0xCF
}
