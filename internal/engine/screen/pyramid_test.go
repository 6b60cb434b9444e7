//go:build gocv

package screen

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	path := filepath.Join(t.TempDir(), "template.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestBuildPyramidScales(t *testing.T) {
	p, err := BuildPyramid(writeTemplate(t, 40, 9), 0.5, 1.0, 2)
	require.NoError(t, err)
	defer p.Close()

	// 0.5 gives 20x4, under the minimum side
	require.Len(t, p, 1)
	assert.Equal(t, 40, p[0].Width)
	assert.Equal(t, 9, p[0].Height)
	assert.Equal(t, 1.0, p[0].Scale)
}

func TestBuildPyramidUnreadableTemplate(t *testing.T) {
	_, err := BuildPyramid(filepath.Join(t.TempDir(), "missing.png"), 0.8, 1.2, 5)
	assert.ErrorIs(t, err, ErrEmptyPyramid)
}

func TestBuildPyramidTemplateTooSmall(t *testing.T) {
	_, err := BuildPyramid(writeTemplate(t, 4, 4), 0.8, 1.2, 5)
	assert.ErrorIs(t, err, ErrEmptyPyramid)
}
