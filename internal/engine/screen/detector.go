package screen

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// Detector runs edge-based multi-scale template matching over screen regions
type Detector struct {
	searcher *Searcher
	pyramid  Pyramid
	params   detect.Params
	log      *logger.AppLogger
}

// NewDetector builds the template pyramid. An empty pyramid is an error:
// no detection would ever be possible.
func NewDetector(searcher *Searcher, templatePath string, params detect.Params, log *logger.AppLogger) (*Detector, error) {
	pyr, err := BuildPyramid(templatePath, params.ScaleMin, params.ScaleMax, params.ScaleSteps)
	if err != nil {
		return nil, err
	}
	log.Debug("Built template pyramid: %d scales from %s", len(pyr), templatePath)
	return &Detector{
		searcher: searcher,
		pyramid:  pyr,
		params:   params,
		log:      log,
	}, nil
}

// Close releases the pyramid
func (d *Detector) Close() error {
	d.pyramid.Close()
	d.pyramid = nil
	return nil
}

// Scan captures region and returns the candidates in it.
// Failures are logged and reported as no candidates.
func (d *Detector) Scan(region detect.Region) []detect.Candidate {
	img, err := d.searcher.CaptureRegion(region)
	if err != nil {
		d.log.Debug("Scan capture failed: %v", err)
		return nil
	}
	cands, err := d.DetectImage(img, region)
	if err != nil {
		d.log.Debug("Scan failed: %v", err)
		return nil
	}
	return cands
}

// DetectImage runs the matcher on an already captured image of region.
func (d *Detector) DetectImage(img image.Image, region detect.Region) (cands []detect.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert capture: %w", err)
	}
	defer mat.Close()

	haystack := d.prepareHaystack(mat)
	defer haystack.Close()

	var dets []detect.Detection
	for _, tpl := range d.pyramid {
		if tpl.Width > haystack.Cols() || tpl.Height > haystack.Rows() {
			continue
		}
		found, err := d.match(haystack, tpl)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", tpl.Name, err)
		}
		dets = append(dets, found...)
	}

	kept := detect.Suppress(dets, d.params.NMSThreshold)
	d.log.Debug("Detector: %d raw matches, %d after NMS", len(dets), len(kept))
	return detect.Candidates(kept, region), nil
}

// prepareHaystack keeps only pixels inside the grayscale band, then blurs and
// edge-detects the mask. The caller owns the returned Mat.
func (d *Detector) prepareHaystack(bgr gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	lower := gocv.NewScalar(d.params.GrayMin, 0, 0, 0)
	upper := gocv.NewScalar(d.params.GrayMax, 0, 0, 0)
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(gray, lower, upper, &mask)

	return edgeMap(mask)
}

// match collects every response location at or above the threshold
func (d *Detector) match(haystack gocv.Mat, tpl ScaledTemplate) ([]detect.Detection, error) {
	result := gocv.NewMat()
	defer result.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()

	gocv.MatchTemplate(haystack, tpl.Edges, &result, gocv.TmCcoeffNormed, noMask)
	if result.Empty() {
		return nil, nil
	}

	data, err := result.DataPtrFloat32()
	if err != nil {
		return nil, err
	}

	cols := result.Cols()
	var out []detect.Detection
	for i, v := range data {
		score := float64(v)
		// Flat edge windows produce NaN/Inf in the normalised response
		if math.IsNaN(score) || math.IsInf(score, 0) || score < d.params.Threshold {
			continue
		}
		x, y := i%cols, i/cols
		out = append(out, detect.Detection{
			Box:   image.Rect(x, y, x+tpl.Width, y+tpl.Height),
			Score: score,
		})
	}
	return out, nil
}
