package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 20, B: 10, A: 255})
	img.SetRGBA(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 0})

	f := FromRGBA(img)
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, Pixel{10, 20, 200}, f.At(0, 0))
	assert.Equal(t, Pixel{3, 2, 1}, f.At(2, 1))
	assert.Equal(t, Pixel{0, 0, 0}, f.At(1, 1))
}

func TestFromRGBASubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 2, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.RGBA)
	f := FromRGBA(sub)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, Pixel{7, 8, 9}, f.At(0, 0))
}

func TestEmpty(t *testing.T) {
	assert.True(t, New(0, 3).Empty())
	assert.False(t, New(1, 1).Empty())
}
