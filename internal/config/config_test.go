package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadForageCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ForageFile)

	s, err := LoadForage(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultForage(), s)
	assert.FileExists(t, path)

	// Defaults lack regions, so the loop must refuse to run
	assert.ErrorIs(t, s.Validate(), ErrMissingKey)
}

func TestLoadForageAcceptsLegacyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forage_settings.json")
	legacy := `{
    "search_region": [100, 200, 800, 400],
    "left_arrow_pos": [50, 300],
    "right_arrow_pos": [950, 300],
    "detection_threshold": 0.3,
    "total_areas": 4,
    "strike_counts": {"2": {"10,20": 3}},
    "blacklist": {"2": [[40, 50]]}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	s, err := LoadForage(path)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, 0.3, s.DetectionThreshold)
	assert.Equal(t, 0.3, s.NMSThreshold) // default kept
	assert.Equal(t, 4, s.TotalAreas)
	assert.Equal(t, 3, s.StrikeCounts["2"]["10,20"])
	assert.Equal(t, [][]int{{40, 50}}, s.Blacklist["2"])
	assert.Equal(t, image.Rect(100, 200, 900, 600), s.Region().Rect())
	assert.Equal(t, 20, s.Params().ScaleSteps)
}

func TestLearningFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ForageFile)
	s := DefaultForage()
	s.SearchRegion = []int{0, 0, 10, 10}
	require.NoError(t, SaveForage(path, s))

	lf := LearningFile{Path: path}
	require.NoError(t, lf.SaveLearning(
		map[string]map[string]int{"1": {"5,5": 2}},
		map[string][][]int{"1": {{7, 7}}},
	))

	got, err := LoadForage(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 10, 10}, got.SearchRegion)
	assert.Equal(t, 2, got.StrikeCounts["1"]["5,5"])
	assert.Equal(t, [][]int{{7, 7}}, got.Blacklist["1"])

	require.NoError(t, lf.ClearLearning())
	got, err = LoadForage(path)
	require.NoError(t, err)
	assert.Empty(t, got.StrikeCounts)
	assert.Empty(t, got.Blacklist)
}

func TestLoadForageParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ForageFile)
	require.NoError(t, os.WriteFile(path, []byte("search_region: [1, 2\n"), 0644))

	s, err := LoadForage(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultForage(), s)
}

func TestReincarnationValidate(t *testing.T) {
	required := []string{"stats_button", "options_button"}

	s := DefaultReincarnation()
	assert.ErrorIs(t, s.Validate(required, 36), ErrMissingKey)

	s.QiRegion = []int{10, 10, 100, 20}
	s.BloodlineRegion = []int{10, 40, 100, 20}
	s.CalibratedPoints["stats_button"] = []int{5, 5}
	err := s.Validate(required, 36)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options_button")

	s.CalibratedPoints["options_button"] = []int{6, 6}
	assert.NoError(t, s.Validate(required, 36))

	s.TargetBloodlineIndex = 36
	assert.ErrorIs(t, s.Validate(required, 36), ErrMissingKey)

	p, ok := s.Point("options_button")
	assert.True(t, ok)
	assert.Equal(t, image.Pt(6, 6), p)
	_, ok = s.Point("skip_animation_button")
	assert.False(t, ok)
}

func TestLoadReincarnationCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ReincarnationFile)
	s, err := LoadReincarnation(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.PageLoadDelay)
	assert.True(t, s.StopOnNew)
	assert.FileExists(t, path)
}

func TestLoadBloodlines(t *testing.T) {
	dir := t.TempDir()

	list, err := LoadBloodlines(filepath.Join(dir, BloodlinesFile))
	require.NoError(t, err)
	require.Len(t, list, 36)
	assert.Equal(t, "Celestial Dragon", list[0].Name)
	assert.Equal(t, "Default Body", list[35].Name)

	// Legacy pair form
	legacy := filepath.Join(dir, "bloodlines.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`[["Buddha", "10x Qi"], ["Hero", "1.2x Qi"]]`), 0644))
	list, err = LoadBloodlines(legacy)
	require.NoError(t, err)
	assert.Equal(t, []Bloodline{{"Buddha", "10x Qi"}, {"Hero", "1.2x Qi"}}, list)
}

func TestPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), PreferencesFile)

	p, err := LoadPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), p)

	p.LogLevel = "Developer"
	p.Display = 1
	p.LogToFile = false
	require.NoError(t, SavePreferences(path, p))

	got, err := LoadPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, os.WriteFile(path, []byte("[app]\nlog_level = Verbose\n"), 0644))
	got, err = LoadPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, "User", got.LogLevel)
}
