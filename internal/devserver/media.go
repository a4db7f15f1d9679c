package devserver

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	VariantOriginal = "original"
	VariantContent  = "content"
	VariantThumb    = "thumb"
)

var variantSizes = map[string]image.Point{
	VariantThumb:    {X: 160, Y: 120},
	VariantContent:  {X: 800, Y: 600},
	VariantOriginal: {X: 1600, Y: 1200},
}

// Variants lists the variant names in the order records advertise them.
var Variants = []string{VariantThumb, VariantContent, VariantOriginal}

// RenderPlaceholder produces a deterministic PNG for a photo variant. The
// pattern is seeded from the photo id so each photo gets a distinct but stable
// image across restarts.
func RenderPlaceholder(photoID, variant string) ([]byte, error) {
	size, ok := variantSizes[variant]
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}

	seed := sha256.Sum256([]byte(photoID))
	base := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			i := (y*8 + x) % len(seed)
			base.Set(x, y, color.RGBA{
				R: seed[i],
				G: seed[(i+7)%len(seed)],
				B: seed[(i+13)%len(seed)],
				A: 0xff,
			})
		}
	}

	scaled := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), base, base.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
