// Package facedetect provides a cascade face detector used as a "contains a person" gate
package facedetect

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/UnendingLoop/PostImageIntake/internal/imageproc"
	"github.com/UnendingLoop/PostImageIntake/internal/model"
	pigo "github.com/esimov/pigo/core"
)

// Params - настройки каскада. ScaleFactor - шаг масштаба окна, MinQuality - порог уверенности,
// выполняет роль minNeighbors у haar-каскадов: чем выше, тем меньше ложных срабатываний
type Params struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
	MaxSide      int
}

var DefaultParams = Params{
	MinSize:      20,
	MaxSize:      1024,
	ShiftFactor:  0.1,
	ScaleFactor:  1.1,
	IoUThreshold: 0.2,
	MinQuality:   10,
	MaxSide:      1024,
}

type PigoDetector struct {
	classifier *pigo.Pigo
	params     Params
}

// LoadPigoDetector reads a pigo cascade file (e.g. "facefinder") from disk
func LoadPigoDetector(cascadePath string, params Params) (*PigoDetector, error) {
	raw, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade %q: %w", cascadePath, err)
	}
	return NewPigoDetector(raw, params)
}

func NewPigoDetector(cascade []byte, params Params) (d *PigoDetector, err error) {
	if len(cascade) == 0 {
		return nil, errors.New("empty face cascade provided")
	}

	// Unpack паникует на обрезанных файлах вместо возврата ошибки
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("malformed face cascade: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}

	return &PigoDetector{classifier: classifier, params: params}, nil
}

func (d *PigoDetector) Detect(img image.Image) ([]model.Region, error) {
	if img == nil {
		return nil, errors.New("nil image provided to face detector")
	}

	plane := imageproc.Luma(img, d.params.MaxSide)

	maxSize := d.params.MaxSize
	if side := max(plane.Cols, plane.Rows); side < maxSize {
		maxSize = side
	}

	dets := d.classifier.RunCascade(pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: plane.Pix,
			Rows:   plane.Rows,
			Cols:   plane.Cols,
			Dim:    plane.Cols,
		},
	}, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.params.IoUThreshold)

	return toRegions(dets, d.params.MinQuality, plane.Scale), nil
}

// toRegions drops weak detections and maps centre-based pigo boxes back to source coordinates
func toRegions(dets []pigo.Detection, minQ float32, scale float64) []model.Region {
	regions := make([]model.Region, 0, len(dets))
	for _, det := range dets {
		if det.Q < minQ {
			continue
		}
		side := int(float64(det.Scale) * scale)
		regions = append(regions, model.Region{
			X:     int(float64(det.Col)*scale) - side/2,
			Y:     int(float64(det.Row)*scale) - side/2,
			Side:  side,
			Score: det.Q,
		})
	}
	return regions
}
