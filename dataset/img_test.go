package dataset

import (
	"image"
	"image/color"
	"reflect"
	"testing"
)

func TestCrop8Rect(t *testing.T) {
	r := crop8Rect(image.Rect(0, 0, 21, 13))
	want := image.Rect(2, 2, 18, 10)
	if r != want {
		t.Errorf("Want: %v\nGot: %v\n", want, r)
	}
}

func TestLabelPlanePaletted(t *testing.T) {
	palette := color.Palette{color.Black, color.White, color.Gray{128}}
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), palette)
	img.SetColorIndex(0, 0, 2)
	img.SetColorIndex(1, 0, 1)

	plane := LabelPlane(img)
	if plane.GrayAt(0, 0).Y != 2 || plane.GrayAt(1, 0).Y != 1 {
		t.Errorf("Got: %v\n", plane.Pix)
	}
}

// 16-bit annotations store raw class ids.
func TestLabelPlaneGray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 1))
	img.SetGray16(0, 0, color.Gray16{Y: 5})
	img.SetGray16(1, 0, color.Gray16{Y: 150})
	img.SetGray16(2, 0, color.Gray16{Y: 1000})

	plane := LabelPlane(img)
	want := []uint8{5, 150, 255}
	if !reflect.DeepEqual(want, plane.Pix) {
		t.Errorf("Want: %v\nGot: %v\n", want, plane.Pix)
	}
}

func TestLabelTensorUpscale(t *testing.T) {
	label := image.NewGray(image.Rect(0, 0, 2, 2))
	label.Pix = []uint8{1, 2, 3, 4}

	x, err := LabelTensor(label, 4, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	if got := x.Int64Values(); !reflect.DeepEqual(want, got) {
		t.Errorf("Want: %v\nGot: %v\n", want, got)
	}
	x.MustDrop()
}

// Downscaling across a class boundary must not blend class ids.
func TestLabelTensorDownscale(t *testing.T) {
	label := image.NewGray(image.Rect(0, 0, 8, 1))
	label.Pix = []uint8{3, 3, 3, 3, 7, 7, 7, 7}

	x, err := LabelTensor(label, 3, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := x.MustSize(); !reflect.DeepEqual([]int64{1, 3}, got) {
		t.Errorf("Got shape: %v\n", got)
	}
	for _, v := range x.Int64Values() {
		if v != 3 && v != 7 {
			t.Errorf("Class %v not present in source label map\n", v)
		}
	}
	x.MustDrop()
}

func TestLabelTensorCrop8(t *testing.T) {
	label := image.NewGray(image.Rect(0, 0, 10, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 10; x++ {
			label.SetGray(x, y, color.Gray{uint8(x)})
		}
	}

	// crop keeps columns 1..8, same size resize is the identity.
	x, err := LabelTensor(label, 8, 8, true)
	if err != nil {
		t.Fatal(err)
	}
	vals := x.Int64Values()
	if vals[0] != 1 || vals[7] != 8 {
		t.Errorf("Got first row: %v\n", vals[:8])
	}
	x.MustDrop()
}
