package thumbnail

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// GenerateImage decodes an image file, downscales it to the bounded
// dimension preserving aspect ratio, and re-encodes it as JPEG.
func (g *Generator) GenerateImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, generationError("open", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, generationError("decode", err)
	}

	return g.encode(img)
}

// encode downscales and JPEG-encodes a decoded frame. Images already
// within the bounding box are not upscaled.
func (g *Generator) encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() > g.maxSide || bounds.Dy() > g.maxSide {
		img = imaging.Fit(img, g.maxSide, g.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: g.quality}); err != nil {
		return nil, generationError("encode", err)
	}
	return buf.Bytes(), nil
}
