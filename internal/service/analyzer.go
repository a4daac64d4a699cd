package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/UnendingLoop/PostImageIntake/internal/imageproc"
	"github.com/UnendingLoop/PostImageIntake/internal/model"
	"golang.org/x/sync/semaphore"
)

// FaceDetector - любой детектор вида "картинка -> список областей"
type FaceDetector interface {
	Detect(img image.Image) ([]model.Region, error)
}

// Analyzer runs the CPU-bound gates (decode, dimensions, colour, face) on a bounded pool.
// A job keeps its slot until it really finishes, even after its caller gave up on it.
type Analyzer struct {
	detector FaceDetector
	slots    *semaphore.Weighted
	timeout  time.Duration
	minSide  int
}

func NewAnalyzer(detector FaceDetector, workers int, timeout time.Duration) *Analyzer {
	if workers <= 0 {
		workers = 1
	}
	return &Analyzer{
		detector: detector,
		slots:    semaphore.NewWeighted(int64(workers)),
		timeout:  timeout,
		minSide:  model.MinSide,
	}
}

type analysisResult struct {
	meta *model.ImageMetadata
	err  error
}

// Analyze returns validation sentinels for rejected images and model.ErrCommon500 for
// timeouts, panics and detector failures
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*model.ImageMetadata, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: no free analysis slot: %v", model.ErrCommon500, err)
	}

	done := make(chan analysisResult, 1)
	go func() {
		defer a.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- analysisResult{err: fmt.Errorf("%w: image analysis panicked: %v", model.ErrCommon500, r)}
			}
		}()

		meta, err := a.run(data)
		done <- analysisResult{meta: meta, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: image analysis aborted: %v", model.ErrCommon500, ctx.Err())
	case res := <-done:
		return res.meta, res.err
	}
}

func (a *Analyzer) run(data []byte) (*model.ImageMetadata, error) {
	meta, img, err := imageproc.Inspect(data)
	if err != nil {
		return nil, err
	}

	if meta.Width < a.minSide || meta.Height < a.minSide {
		return nil, fmt.Errorf("%w: got %dx%d", model.ErrImageTooSmall, meta.Width, meta.Height)
	}

	// TODO: uniform-channel RGB (R==G==B везде) тоже по сути ч/б - включать только после решения по политике
	if meta.Mode == model.ColorGray {
		return nil, fmt.Errorf("%w: got single-channel %s image", model.ErrNotColor, meta.Format)
	}

	faces, err := a.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("%w: face detection failed: %v", model.ErrCommon500, err)
	}
	if len(faces) == 0 {
		return nil, model.ErrNoSubjectDetected
	}

	return meta, nil
}
