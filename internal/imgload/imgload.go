// Package imgload decodes an arbitrary source image and rescales it to
// the fixed 160xH display surface the optimiser core consumes
// (spec.md §6 "Consumed (i) Target image"). A collaborator, not part of
// the core: the core never touches image decoding. Grounded on the
// teacher's font2rgba.go image-to-pixel-buffer conversion style, with
// the actual rescale delegated to golang.org/x/image/draw since no pack
// repo hand-rolls a resampling filter.
package imgload

import (
	"image"
	"io"

	"golang.org/x/image/draw"

	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// Load decodes r (any format registered via image.RegisterFormat, i.e.
// whichever of image/png, image/jpeg, image/gif the caller blank-imports)
// and rescales it to width x height using a Catmull-Rom resampler.
func Load(r io.Reader, height int) (*raster.TargetImage, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return Rescale(src, height), nil
}

// Rescale resamples src to the fixed display width and the given
// height, returning a TargetImage ready for raster.BuildErrorTable.
func Rescale(src image.Image, height int) *raster.TargetImage {
	dst := image.NewRGBA(image.Rect(0, 0, raster.Width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	target := raster.NewTargetImage(height)
	for y := 0; y < height; y++ {
		for x := 0; x < raster.Width; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			target.Pixels[y*raster.Width+x] = colordist.RGB{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
			}
		}
	}
	return target
}
