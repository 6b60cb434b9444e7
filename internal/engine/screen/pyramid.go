package screen

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// ErrEmptyPyramid means no usable template scale could be built
var ErrEmptyPyramid = errors.New("template pyramid is empty")

// ScaledTemplate is one scale step of the source template, as an edge map
type ScaledTemplate struct {
	Name   string
	Scale  float64
	Edges  gocv.Mat
	Width  int
	Height int
}

// Pyramid holds the scaled templates. Close releases the native memory.
type Pyramid []ScaledTemplate

// Close releases every edge Mat
func (p Pyramid) Close() {
	for i := range p {
		p[i].Edges.Close()
	}
}

// BuildPyramid loads a grayscale template and computes one edge map per scale.
// Scales producing a side under MinTemplateSide are skipped.
func BuildPyramid(path string, scaleMin, scaleMax float64, steps int) (Pyramid, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer src.Close()
	if src.Empty() {
		return nil, fmt.Errorf("failed to load template %s: %w", path, ErrEmptyPyramid)
	}

	name := filepath.Base(path)
	var out Pyramid
	sizes := detect.TemplateSizes(src.Cols(), src.Rows(), scaleMin, scaleMax, steps, constants.MinTemplateSide)
	for _, size := range sizes {
		scale := size.Scale
		resized := gocv.NewMat()
		gocv.Resize(src, &resized, image.Pt(size.Width, size.Height), 0, 0, gocv.InterpolationArea)
		edges := edgeMap(resized)
		resized.Close()

		out = append(out, ScaledTemplate{
			Name:   fmt.Sprintf("%s@%.2f", name, scale),
			Scale:  scale,
			Edges:  edges,
			Width:  edges.Cols(),
			Height: edges.Rows(),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyPyramid)
	}
	return out, nil
}

// edgeMap blurs then runs Canny. The caller owns the returned Mat.
func edgeMap(src gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	k := constants.BlurKernel
	gocv.GaussianBlur(src, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	gocv.Canny(blurred, &edges, constants.CannyLow, constants.CannyHigh)
	return edges
}
