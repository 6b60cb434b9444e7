package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ConserveLee/immortals-bot/internal/config"
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
	"github.com/ConserveLee/immortals-bot/internal/engine/screen"
	"github.com/ConserveLee/immortals-bot/internal/logger"
)

func main() {
	dataDir := config.DataDir()
	prefs, _ := config.LoadPreferences(filepath.Join(dataDir, config.PreferencesFile))

	imagePath := flag.String("image", "", "PNG screenshot to scan (default: capture the display)")
	display := flag.Int("display", prefs.Display, "display to capture when -image is not set")
	templatePath := flag.String("template", prefs.TemplatePath, "template image")
	settingsPath := flag.String("settings", filepath.Join(dataDir, config.ForageFile), "forage settings file")
	regionFlag := flag.String("region", "", "x,y,w,h to scan (default: settings search_region, else whole image)")
	threshold := flag.Float64("threshold", -1, "override detection_threshold")
	out := flag.String("out", "", "write an annotated PNG here")
	flag.Parse()

	log := logger.NewAppLogger("debug", nil, logger.NewSink())

	settings, err := config.LoadForage(*settingsPath)
	if err != nil {
		fmt.Printf("Failed to load settings: %v\n", err)
		os.Exit(1)
	}
	params := settings.Params()
	if *threshold >= 0 {
		params.Threshold = *threshold
	}

	searcher := screen.NewSearcher()
	searcher.SetDisplayID(*display)

	screenImg, origin, err := loadScreen(searcher, *imagePath)
	if err != nil {
		fmt.Printf("Failed to load screen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Screen size: %dx%d\n", screenImg.Bounds().Dx(), screenImg.Bounds().Dy())

	region, err := pickRegion(*regionFlag, settings, screenImg.Bounds(), origin)
	if err != nil {
		fmt.Printf("Bad region: %v\n", err)
		os.Exit(1)
	}
	crop := region.Rect().Sub(origin).Intersect(screenImg.Bounds())
	if crop.Empty() {
		fmt.Printf("Region %+v is outside the screen\n", region)
		os.Exit(1)
	}
	fmt.Printf("Region: %+v\n", region)

	detector, err := screen.NewDetector(searcher, *templatePath, params, log)
	if err != nil {
		fmt.Printf("Failed to load template %s: %v\n", *templatePath, err)
		os.Exit(1)
	}
	defer detector.Close()

	cands, err := detector.DetectImage(screenImg.SubImage(crop), region)
	if err != nil {
		fmt.Printf("Detection failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== %d candidates (threshold %.2f, nms %.2f, %d scales) ===\n",
		len(cands), params.Threshold, params.NMSThreshold, params.ScaleSteps)
	for i, c := range cands {
		fmt.Printf("  #%d screen (%d, %d) relative (%d, %d) box %v score %.3f\n",
			i+1, c.Position.X, c.Position.Y, c.Relative.X, c.Relative.Y, c.Box, c.Score)
	}

	if *out != "" {
		if err := annotate(screenImg, cands, region.Origin().Sub(origin), *out); err != nil {
			fmt.Printf("Failed to write %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("\nAnnotated image written to %s\n", *out)
	}
}

// loadScreen returns the screenshot and the screen position of its top-left pixel
func loadScreen(s *screen.Searcher, path string) (*image.RGBA, image.Point, error) {
	if path == "" {
		img, err := s.CaptureScreen()
		return img, s.DisplayBounds().Min, err
	}

	img, err := s.LoadImage(path)
	if err != nil {
		return nil, image.Point{}, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, image.Point{}, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rgba, image.Point{}, nil
}

func pickRegion(flagValue string, settings config.ForageSettings, bounds image.Rectangle, origin image.Point) (detect.Region, error) {
	if flagValue != "" {
		parts := strings.Split(flagValue, ",")
		v := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return detect.Region{}, err
			}
			v = append(v, n)
		}
		r, ok := detect.RegionFromSlice(v)
		if !ok {
			return detect.Region{}, fmt.Errorf("want x,y,w,h, got %q", flagValue)
		}
		return r, nil
	}
	if r, ok := detect.RegionFromSlice(settings.SearchRegion); ok {
		return r, nil
	}
	return detect.Region{X: origin.X, Y: origin.Y, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// annotate draws every candidate box onto the screenshot and writes it out
func annotate(img image.Image, cands []detect.Candidate, offset image.Point, path string) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}
	for _, c := range cands {
		gocv.Rectangle(&mat, c.Box.Add(offset), green, 2)
		gocv.Circle(&mat, c.Relative.Add(offset), 3, red, -1)
		gocv.PutText(&mat, fmt.Sprintf("%.2f", c.Score), c.Box.Min.Add(offset).Sub(image.Pt(0, 4)),
			gocv.FontHersheyPlain, 1, green, 1)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("gocv could not encode %s", path)
	}
	return nil
}
