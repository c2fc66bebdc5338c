package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zaynotley/rastaforge"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// previewScale is the integer upscale applied to the fixed 160-pixel-wide
// raster display surface so it is visible on a modern monitor.
const previewScale = 4

// previewWindow renders the optimiser's evolving best picture live,
// polling Optimizer.Best() once per Ebiten frame. Grounded on the
// teacher's video_backend_ebiten.go Game (a mutex-guarded frame buffer
// copied into an ebiten.Image each Draw), narrowed from a full video
// chip's RGBA frame buffer to a palette-indexed picture.
type previewWindow struct {
	opt   *rastaforge.Optimizer
	pal   raster.Palette
	img   *ebiten.Image
	pix   []byte
	width int
}

// newPreviewWindow returns a previewWindow sized to the target picture's
// dimensions, scaled up by previewScale.
func newPreviewWindow(opt *rastaforge.Optimizer, pal raster.Palette, height int) *previewWindow {
	return &previewWindow{
		opt:   opt,
		pal:   pal,
		img:   ebiten.NewImage(raster.Width, height),
		pix:   make([]byte, raster.Width*height*4),
		width: raster.Width,
	}
}

// Update redraws the frame buffer from the current best solution. Ebiten
// calls this once per tick; no input is handled here since the quit
// listener owns stdin.
func (p *previewWindow) Update() error {
	colorRows, _, _, _, _, _ := p.opt.Best()
	for y, row := range colorRows {
		for x, idx := range row {
			c := p.pal[idx]
			off := (y*p.width + x) * 4
			p.pix[off] = c.R
			p.pix[off+1] = c.G
			p.pix[off+2] = c.B
			p.pix[off+3] = 0xff
		}
	}
	p.img.WritePixels(p.pix)
	return nil
}

// Draw scales the frame buffer up to the window surface.
func (p *previewWindow) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(previewScale, previewScale)
	screen.DrawImage(p.img, op)
}

// Layout fixes the window to the scaled picture dimensions regardless of
// the outer window manager's size hints.
func (p *previewWindow) Layout(outsideWidth, outsideHeight int) (int, int) {
	bounds := p.img.Bounds()
	return bounds.Dx() * previewScale, bounds.Dy() * previewScale
}

// runPreview blocks running the Ebiten event loop until the window is
// closed. Intended to be launched in its own goroutine from main.
func runPreview(opt *rastaforge.Optimizer, pal raster.Palette, height int) error {
	ebiten.SetWindowTitle("rastaforge live preview")
	ebiten.SetWindowSize(raster.Width*previewScale, height*previewScale)
	ebiten.SetWindowResizable(true)
	return ebiten.RunGame(newPreviewWindow(opt, pal, height))
}
