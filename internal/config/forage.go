package config

import (
	"github.com/ConserveLee/immortals-bot/internal/engine/detect"
)

// ForageSettings is the forage bot configuration plus its learning state
type ForageSettings struct {
	SearchRegion  []int `yaml:"search_region"`
	LeftArrowPos  []int `yaml:"left_arrow_pos"`
	RightArrowPos []int `yaml:"right_arrow_pos"`

	DetectionThreshold float64 `yaml:"detection_threshold"`
	NMSThreshold       float64 `yaml:"nms_threshold"`
	GrayscaleMin       float64 `yaml:"grayscale_min"`
	GrayscaleMax       float64 `yaml:"grayscale_max"`
	ScaleMin           float64 `yaml:"scale_min"`
	ScaleMax           float64 `yaml:"scale_max"`
	ScaleSteps         int     `yaml:"scale_steps"`

	PostClickDelay       float64 `yaml:"post_click_delay"`
	ScanInterval         float64 `yaml:"scan_interval"`
	AreaLoadDelay        float64 `yaml:"area_load_delay"`
	ClickCooldownSeconds float64 `yaml:"click_cooldown_seconds"`
	TotalAreas           int     `yaml:"total_areas"`
	StartupDelay         float64 `yaml:"startup_delay"`

	MouseSpeedFactor  float64 `yaml:"mouse_speed_factor"`
	MouseSnapDistance int     `yaml:"mouse_snap_distance"`

	StrikeLimit     int     `yaml:"strike_limit"`
	BlacklistRadius float64 `yaml:"blacklist_radius"`

	// Learning state: area id -> "x,y" -> strikes, and area id -> [[x, y], ...]
	StrikeCounts map[string]map[string]int `yaml:"strike_counts"`
	Blacklist    map[string][][]int        `yaml:"blacklist"`
}

// DefaultForage returns the out-of-the-box forage settings
func DefaultForage() ForageSettings {
	return ForageSettings{
		DetectionThreshold:   0.25,
		NMSThreshold:         0.3,
		GrayscaleMin:         245,
		GrayscaleMax:         255,
		ScaleMin:             0.8,
		ScaleMax:             1.2,
		ScaleSteps:           20,
		PostClickDelay:       1.8,
		ScanInterval:         0.01,
		AreaLoadDelay:        1.0,
		ClickCooldownSeconds: 5.0,
		TotalAreas:           6,
		StartupDelay:         3,
		MouseSpeedFactor:     0.3,
		MouseSnapDistance:    15,
		StrikeLimit:          5,
		BlacklistRadius:      5,
		StrikeCounts:         map[string]map[string]int{},
		Blacklist:            map[string][][]int{},
	}
}

// LoadForage reads the forage settings, creating the file with defaults if absent
func LoadForage(path string) (ForageSettings, error) {
	s := DefaultForage()
	if err := loadOrCreate(path, &s); err != nil {
		return DefaultForage(), err
	}
	if s.StrikeCounts == nil {
		s.StrikeCounts = map[string]map[string]int{}
	}
	if s.Blacklist == nil {
		s.Blacklist = map[string][][]int{}
	}
	return s, nil
}

// SaveForage writes the forage settings
func SaveForage(path string, s ForageSettings) error {
	return save(path, s)
}

// Validate checks everything the forage loop cannot run without
func (s ForageSettings) Validate() error {
	if _, ok := detect.RegionFromSlice(s.SearchRegion); !ok {
		return missing("search_region must be [x, y, width, height], got %v", s.SearchRegion)
	}
	if len(s.LeftArrowPos) != 2 {
		return missing("left_arrow_pos must be [x, y], got %v", s.LeftArrowPos)
	}
	if len(s.RightArrowPos) != 2 {
		return missing("right_arrow_pos must be [x, y], got %v", s.RightArrowPos)
	}
	if s.TotalAreas < 1 {
		return missing("total_areas must be at least 1, got %d", s.TotalAreas)
	}
	if s.ScaleSteps < 1 || s.ScaleMin <= 0 || s.ScaleMax < s.ScaleMin {
		return missing("scale range [%v, %v] x %d is invalid", s.ScaleMin, s.ScaleMax, s.ScaleSteps)
	}
	if s.StrikeLimit < 1 {
		return missing("strike_limit must be at least 1, got %d", s.StrikeLimit)
	}
	return nil
}

// Region returns the configured scan region. Call Validate first.
func (s ForageSettings) Region() detect.Region {
	r, _ := detect.RegionFromSlice(s.SearchRegion)
	return r
}

// Params returns the detector tuning
func (s ForageSettings) Params() detect.Params {
	return detect.Params{
		Threshold:    s.DetectionThreshold,
		NMSThreshold: s.NMSThreshold,
		GrayMin:      s.GrayscaleMin,
		GrayMax:      s.GrayscaleMax,
		ScaleMin:     s.ScaleMin,
		ScaleMax:     s.ScaleMax,
		ScaleSteps:   s.ScaleSteps,
	}
}

// LearningFile persists strike counts and the blacklist into the forage settings file
type LearningFile struct {
	Path string
}

// SaveLearning replaces only the learning fields in the settings file
func (f LearningFile) SaveLearning(strikes map[string]map[string]int, blacklist map[string][][]int) error {
	s, err := LoadForage(f.Path)
	if err != nil {
		return err
	}
	s.StrikeCounts = strikes
	s.Blacklist = blacklist
	return SaveForage(f.Path, s)
}

// ClearLearning wipes strike counts and the blacklist
func (f LearningFile) ClearLearning() error {
	return f.SaveLearning(map[string]map[string]int{}, map[string][][]int{})
}
