package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// LumaPlane - row-major 8-bit luma pixels. Scale maps plane coordinates back to the source image.
type LumaPlane struct {
	Pix   []uint8
	Rows  int
	Cols  int
	Scale float64
}

// Luma converts img to a luma plane, shrinking it first so that neither side exceeds maxSide (0 disables shrinking)
func Luma(img image.Image, maxSide int) LumaPlane {
	srcW := img.Bounds().Dx()
	scale := 1.0

	if maxSide > 0 && (srcW > maxSide || img.Bounds().Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Box)
		scale = float64(srcW) / float64(img.Bounds().Dx())
	}

	// Grayscale всегда возвращает NRGBA c началом в (0,0), R=G=B=Y
	gray := imaging.Grayscale(img)
	cols, rows := gray.Bounds().Dx(), gray.Bounds().Dy()

	pix := make([]uint8, rows*cols)
	for y := 0; y < rows; y++ {
		line := gray.Pix[y*gray.Stride:]
		for x := 0; x < cols; x++ {
			pix[y*cols+x] = line[x*4]
		}
	}

	return LumaPlane{Pix: pix, Rows: rows, Cols: cols, Scale: scale}
}
