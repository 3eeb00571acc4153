package train

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"

	"github.com/sugarme/espnet/dataset"
	"github.com/sugarme/espnet/metric"
)

// ClassMap is a predicted class index per pixel, row-major.
type ClassMap struct {
	Width   int
	Height  int
	Classes []int64
}

// At returns class at (x, y).
func (m *ClassMap) At(x, y int) int64 {
	return m.Classes[y*m.Width+x]
}

// Predict resizes img to width x height, runs net without gradients and
// returns the argmax class map along with the resized image.
func Predict(net ts.ModuleT, img image.Image, width, height int, device gotch.Device) (*ClassMap, *image.NRGBA, error) {
	if width%8 != 0 || height%8 != 0 {
		return nil, nil, errors.Errorf("width and height must be multiples of 8. Got %vx%v", width, height)
	}
	resized := dataset.ResizeImage(img, width, height)
	x, err := dataset.ImageToTensor(resized)
	if err != nil {
		return nil, nil, err
	}
	input := x.MustUnsqueeze(0, true).MustTo(device, true)

	var pred *ts.Tensor
	ts.NoGrad(func() {
		logits := net.ForwardT(input, false)
		pred = metric.Argmax(logits).MustTo(gotch.CPU, true)
		logits.MustDrop()
	})
	input.MustDrop()

	classes := pred.Int64Values()
	pred.MustDrop()

	return &ClassMap{Width: width, Height: height, Classes: classes}, resized, nil
}

// ClassColor returns a distinct opaque color for a class. Class 0
// (background) is transparent.
func ClassColor(class int64) color.NRGBA {
	if class == 0 {
		return color.NRGBA{}
	}
	// golden angle hue spacing
	h := math.Mod(float64(class)*137.508, 360) / 60
	x := uint8(255 * (1 - math.Abs(math.Mod(h, 2)-1)))
	switch int(h) {
	case 0:
		return color.NRGBA{255, x, 0, 255}
	case 1:
		return color.NRGBA{x, 255, 0, 255}
	case 2:
		return color.NRGBA{0, 255, x, 255}
	case 3:
		return color.NRGBA{0, x, 255, 255}
	case 4:
		return color.NRGBA{x, 0, 255, 255}
	default:
		return color.NRGBA{255, 0, x, 255}
	}
}

// Mask renders a class map as a color image.
func Mask(m *ClassMap) *image.NRGBA {
	mask := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			mask.SetNRGBA(x, y, ClassColor(m.At(x, y)))
		}
	}

	return mask
}

// Overlay blends the class map mask over img with given opacity (0-255).
// img must have the class map size.
func Overlay(img image.Image, m *ClassMap, opacity uint8) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dx() != m.Width || b.Dy() != m.Height {
		return nil, errors.Errorf("image size %vx%v does not match class map size %vx%v", b.Dx(), b.Dy(), m.Width, m.Height)
	}

	rec := image.Rect(0, 0, m.Width, m.Height)
	dst := image.NewRGBA(rec)
	draw.Draw(dst, rec, img, b.Min, draw.Src)

	alpha := image.NewUniform(color.Alpha{opacity})
	draw.DrawMask(dst, rec, Mask(m), image.Point{}, alpha, image.Point{}, draw.Over)

	return dst, nil
}

// ScaleTo resizes a rendered overlay back to the source image size with
// bilinear interpolation. Only for display: class boundaries get blended.
func ScaleTo(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}
