package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/disintegration/gift"
	"github.com/otiai10/gosseract/v2"

	"github.com/ConserveLee/immortals-bot/internal/constants"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/ocr/stattext"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

// ErrEngineMissing means tesseract or its language data is not installed.
var ErrEngineMissing = errors.New("tesseract OCR engine not available")

// Capturer grabs a screen region
type Capturer interface {
	CaptureRegion(r detect.Region) (*image.RGBA, error)
}

// Reader reads short stat lines (qi rate, bloodline) from the screen
type Reader struct {
	mu       sync.Mutex
	capturer Capturer
	client   *gosseract.Client
	log      *logger.AppLogger
}

// NewReader creates a tesseract client configured for a single uniform block of text
func NewReader(c Capturer, log *logger.AppLogger) (*Reader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, classify(err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, classify(err)
	}

	return &Reader{
		capturer: c,
		client:   client,
		log:      log,
	}, nil
}

// Close frees the tesseract client
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

// ReadStat returns the cleaned text in region, UNKNOWN for an empty read,
// ERROR for a failed read. A missing engine is returned as ErrEngineMissing.
func (r *Reader) ReadStat(region detect.Region) (string, error) {
	img, err := r.capturer.CaptureRegion(region)
	if err != nil {
		r.log.Debug("OCR capture failed: %v", err)
		return constants.OCRError, nil
	}

	buf, err := r.preprocess(img)
	if err != nil {
		r.log.Debug("OCR preprocess failed: %v", err)
		return constants.OCRError, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(buf); err != nil {
		if cerr := classify(err); errors.Is(cerr, ErrEngineMissing) {
			return "", cerr
		}
		r.log.Debug("OCR set image failed: %v", err)
		return constants.OCRError, nil
	}
	text, err := r.client.Text()
	if err != nil {
		if cerr := classify(err); errors.Is(cerr, ErrEngineMissing) {
			return "", cerr
		}
		r.log.Debug("OCR read failed: %v", err)
		return constants.OCRError, nil
	}

	return stattext.Stat(text), nil
}

// preprocess converts to grayscale, upscales 2x and boosts contrast, then encodes PNG
func (r *Reader) preprocess(img image.Image) ([]byte, error) {
	b := img.Bounds()
	g := gift.New(
		gift.Grayscale(),
		gift.Resize(b.Dx()*2, b.Dy()*2, gift.LanczosResampling),
		gift.Contrast(30),
	)

	dst := image.NewGray(g.Bounds(b))
	g.Draw(dst, img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tessdata") ||
		strings.Contains(msg, "failed loading language") ||
		strings.Contains(msg, "failed to initialize") {
		return fmt.Errorf("%w: %v", ErrEngineMissing, err)
	}
	return err
}
