package tagging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
)

// maxArtworkEdge caps embedded cover dimensions; larger art is downscaled.
const maxArtworkEdge = 1400

const jpegQuality = 90

// LoadArtwork reads a cover image, downscales it when oversized, and returns
// JPEG bytes ready for embedding. Errors here are reported to the caller so
// they can be logged as warnings; missing or corrupt art never fails a job.
func LoadArtwork(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artwork: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode artwork %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxArtworkEdge || bounds.Dy() > maxArtworkEdge {
		img = imaging.Fit(img, maxArtworkEdge, maxArtworkEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode artwork: %w", err)
	}
	return buf.Bytes(), nil
}
