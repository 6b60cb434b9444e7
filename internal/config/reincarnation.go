package config

import (
	"image"

	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// ReincarnationSettings configures the reincarnation bot
type ReincarnationSettings struct {
	QiRegion         []int            `yaml:"qi_region"`
	BloodlineRegion  []int            `yaml:"bloodline_region"`
	CalibratedPoints map[string][]int `yaml:"calibrated_points"`

	MouseSpeedFactor   float64 `yaml:"mouse_speed_factor"`
	MouseSnapThreshold int     `yaml:"mouse_snap_threshold"`
	AfterClickDelay    float64 `yaml:"after_click_delay"`
	PageLoadDelay      float64 `yaml:"page_load_delay"`

	StopOnBloodline      bool    `yaml:"stop_on_bloodline"`
	StopOnQi             bool    `yaml:"stop_on_qi"`
	TargetBloodlineIndex int     `yaml:"target_bloodline_index"`
	TargetQiMulti        float64 `yaml:"target_qi_multi"`
	StopOnNew            bool    `yaml:"stop_on_new"`
	ShowSuccessPopup     bool    `yaml:"show_success_popup"`
}

// DefaultReincarnation returns the out-of-the-box reincarnation settings
func DefaultReincarnation() ReincarnationSettings {
	return ReincarnationSettings{
		CalibratedPoints:     map[string][]int{},
		MouseSpeedFactor:     0.15,
		MouseSnapThreshold:   25,
		AfterClickDelay:      1.5,
		PageLoadDelay:        0.5,
		StopOnBloodline:      true,
		StopOnQi:             false,
		TargetBloodlineIndex: 0,
		TargetQiMulti:        200,
		StopOnNew:            true,
		ShowSuccessPopup:     true,
	}
}

// LoadReincarnation reads the reincarnation settings, creating the file with defaults if absent
func LoadReincarnation(path string) (ReincarnationSettings, error) {
	s := DefaultReincarnation()
	if err := loadOrCreate(path, &s); err != nil {
		return DefaultReincarnation(), err
	}
	if s.CalibratedPoints == nil {
		s.CalibratedPoints = map[string][]int{}
	}
	return s, nil
}

// SaveReincarnation writes the reincarnation settings
func SaveReincarnation(path string, s ReincarnationSettings) error {
	return save(path, s)
}

// Validate checks the OCR regions, the required calibrated points and the
// target rank against a ranking of rankSize entries.
func (s ReincarnationSettings) Validate(requiredPoints []string, rankSize int) error {
	if _, ok := detect.RegionFromSlice(s.QiRegion); !ok {
		return missing("qi_region must be [x, y, width, height], got %v", s.QiRegion)
	}
	if _, ok := detect.RegionFromSlice(s.BloodlineRegion); !ok {
		return missing("bloodline_region must be [x, y, width, height], got %v", s.BloodlineRegion)
	}
	for _, key := range requiredPoints {
		if _, ok := s.Point(key); !ok {
			return missing("calibrated point %q", key)
		}
	}
	if rankSize == 0 {
		return missing("bloodline ranking is empty")
	}
	if s.StopOnBloodline && (s.TargetBloodlineIndex < 0 || s.TargetBloodlineIndex >= rankSize) {
		return missing("target_bloodline_index %d outside ranking of %d", s.TargetBloodlineIndex, rankSize)
	}
	return nil
}

// Point returns a calibrated point by key
func (s ReincarnationSettings) Point(key string) (image.Point, bool) {
	v, ok := s.CalibratedPoints[key]
	if !ok || len(v) != 2 {
		return image.Point{}, false
	}
	return image.Pt(v[0], v[1]), true
}

// QiArea returns the qi OCR region. Call Validate first.
func (s ReincarnationSettings) QiArea() detect.Region {
	r, _ := detect.RegionFromSlice(s.QiRegion)
	return r
}

// BloodlineArea returns the bloodline OCR region. Call Validate first.
func (s ReincarnationSettings) BloodlineArea() detect.Region {
	r, _ := detect.RegionFromSlice(s.BloodlineRegion)
	return r
}
