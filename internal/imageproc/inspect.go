// Package imageproc provides decoding and pixel preparation of uploaded images: metadata inspection and luma-plane conversion for detectors.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Inspect decodes data and describes it. Any decoding failure, including a declared raster
// over model.MaxPixels, is reported as model.ErrDecodeFailed.
func Inspect(data []byte) (*model.ImageMetadata, image.Image, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty payload", model.ErrDecodeFailed)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrDecodeFailed, err)
	}
	// маленький файл может заявить гигантский растр - проверяем до выделения памяти
	if px := int64(cfg.Width) * int64(cfg.Height); cfg.Width <= 0 || cfg.Height <= 0 || px > model.MaxPixels {
		return nil, nil, fmt.Errorf("%w: declared %dx%d exceeds %d pixels", model.ErrDecodeFailed, cfg.Width, cfg.Height, model.MaxPixels)
	}

	// без AutoOrientation imaging отдает картинку в исходной цветовой модели
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrDecodeFailed, err)
	}

	b := img.Bounds()
	return &model.ImageMetadata{
		Width:  b.Dx(),
		Height: b.Dy(),
		Mode:   ColorModeOf(img),
		Size:   int64(len(data)),
		Format: format,
	}, img, nil
}

// ColorModeOf classifies the decoded pixel model. Only single-channel gray counts as grayscale;
// gray with alpha decodes to NRGBA and is treated as color.
func ColorModeOf(img image.Image) model.ColorMode {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return model.ColorGray
	case *image.RGBA, *image.RGBA64, *image.NRGBA, *image.NRGBA64,
		*image.YCbCr, *image.NYCbCrA, *image.CMYK, *image.Paletted:
		return model.ColorFull
	default:
		return model.ColorOther
	}
}
