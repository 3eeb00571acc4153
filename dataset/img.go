package dataset

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	ts "github.com/sugarme/gotch/tensor"
	"github.com/sugarme/gotch/vision"
)

// ReadImage reads image from file.
func ReadImage(filename string) (image.Image, error) {
	ext := filepath.Ext(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	switch ext {
	case ".png", ".PNG":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		img, err = jpeg.Decode(f)
	case ".tiff", ".tif", ".TIFF", ".TIF":
		img, err = tiff.Decode(f)
	default:
		return nil, fmt.Errorf("Unsupported image format: %v", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %v", filename)
	}

	return img, nil
}

func isTiff(name string) bool {
	switch filepath.Ext(name) {
	case ".tiff", ".tif", ".TIFF", ".TIF":
		return true
	default:
		return false
	}
}

// isImageFile reports whether file extension is a supported image format.
func isImageFile(name string) bool {
	switch filepath.Ext(name) {
	case ".png", ".PNG", ".jpg", ".jpeg", ".JPG", ".JPEG", ".tiff", ".tif", ".TIFF", ".TIF":
		return true
	default:
		return false
	}
}

// LabelPlane extracts class indices from an annotation image. Paletted images
// carry the class in the palette index, 16-bit gray images in the raw value
// (clipped to 255), others in the first (red) channel.
func LabelPlane(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8
			switch src := img.(type) {
			case *image.Paletted:
				v = src.ColorIndexAt(x, y)
			case *image.Gray16:
				g := src.Gray16At(x, y).Y
				if g > 255 {
					g = 255
				}
				v = uint8(g)
			default:
				r, _, _, _ := img.At(x, y).RGBA()
				v = uint8(r >> 8)
			}
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = v
		}
	}

	return out
}

// crop8Rect returns the centered rectangle whose sides are the largest
// multiples of 8 that fit into b.
func crop8Rect(b image.Rectangle) image.Rectangle {
	w := 8 * (b.Dx() / 8)
	h := 8 * (b.Dy() / 8)
	x0 := b.Min.X + (b.Dx()-w)/2
	y0 := b.Min.Y + (b.Dy()-h)/2

	return image.Rect(x0, y0, x0+w, y0+h)
}

// Crop8 crops tensor [C H W] to the largest multiples of 8, keeping the
// center. The input tensor is consumed.
func Crop8(x *ts.Tensor) *ts.Tensor {
	size := x.MustSize()
	r := crop8Rect(image.Rect(0, 0, int(size[2]), int(size[1])))
	rows := x.MustNarrow(1, int64(r.Min.Y), int64(r.Dy()), true)

	return rows.MustNarrow(2, int64(r.Min.X), int64(r.Dx()), true)
}

// ResizeNearest resizes tensor [C H W] to [C height width] by nearest
// neighbour sampling: every output cell copies one input cell, so no new
// values appear. Output is float. The input tensor is consumed.
func ResizeNearest(x *ts.Tensor, width, height int) *ts.Tensor {
	x4 := x.MustTotype(gotch.Float, true).MustUnsqueeze(0, true)
	out := x4.MustUpsampleNearest2d([]int64{int64(height), int64(width)}, nil, nil, true)

	return out.MustSqueeze1(0, true)
}

// ResizeImage resizes image with nearest neighbour interpolation.
func ResizeImage(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.NearestNeighbor)
}

// imageToCHW converts an image to uint8 tensor [3 H W].
func imageToCHW(img *image.NRGBA) (*ts.Tensor, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	pixels := make([]uint8, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*w + x
			pixels[i] = c.R
			pixels[plane+i] = c.G
			pixels[2*plane+i] = c.B
		}
	}

	return ts.NewTensorFromData(pixels, []int64{3, int64(h), int64(w)})
}

// ImageToTensor converts an image to float tensor [3 H W] with values in [0, 1].
func ImageToTensor(img *image.NRGBA) (*ts.Tensor, error) {
	x, err := imageToCHW(img)
	if err != nil {
		return nil, err
	}

	return x.MustTotype(gotch.Float, true).MustDiv1(ts.FloatScalar(255.0), true), nil
}

// loadCHW loads image file as uint8 tensor [3 H W]. Tiff is not supported by
// vision.Load and goes through the Go decoder.
func loadCHW(filename string) (*ts.Tensor, error) {
	if isTiff(filename) {
		img, err := ReadImage(filename)
		if err != nil {
			return nil, err
		}
		return imageToCHW(imaging.Clone(img))
	}

	x, err := vision.Load(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %v", filename)
	}

	return x, nil
}

// LoadImageTensor loads image file as float tensor [3 height width] with
// values in [0, 1]. If crop8 is set, the image is center-cropped to multiples
// of 8 before resizing.
func LoadImageTensor(filename string, width, height int, crop8 bool) (*ts.Tensor, error) {
	x, err := loadCHW(filename)
	if err != nil {
		return nil, err
	}
	if crop8 {
		x = Crop8(x)
	}

	return ResizeNearest(x, width, height).MustDiv1(ts.FloatScalar(255.0), true), nil
}

// LabelTensor converts a label plane to int64 tensor [height width], cropped
// and resized exactly like its image in LoadImageTensor.
func LabelTensor(label *image.Gray, width, height int, crop8 bool) (*ts.Tensor, error) {
	b := label.Bounds()
	pix := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		pix = append(pix, label.Pix[label.PixOffset(b.Min.X, y):label.PixOffset(b.Max.X, y)]...)
	}
	x, err := ts.NewTensorFromData(pix, []int64{1, int64(b.Dy()), int64(b.Dx())})
	if err != nil {
		return nil, err
	}
	if crop8 {
		x = Crop8(x)
	}
	out := ResizeNearest(x, width, height).MustSqueeze1(0, true)

	return out.MustTotype(gotch.Int64, true), nil
}
