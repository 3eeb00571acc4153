package dataset_test

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sugarme/espnet/dataset"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// makeSceneDir writes n image/annotation pairs of size w x h. Annotation
// left half is class 3, right half class 7.
func makeSceneDir(t *testing.T, n, w, h int) string {
	root, err := ioutil.TempDir("", "sceneparse")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		ann := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetNRGBA(x, y, color.NRGBA{255, 0, 0, 255})
				cls := uint8(3)
				if x >= w/2 {
					cls = 7
				}
				ann.SetGray(x, y, color.Gray{cls})
			}
		}
		name := fmt.Sprintf("img_%02d", i)
		writePNG(t, filepath.Join(root, "images", "training", name+".png"), img)
		writePNG(t, filepath.Join(root, "annotations", "training", name+".png"), ann)
	}
	// image without annotation is skipped
	writePNG(t, filepath.Join(root, "images", "training", "orphan.png"), image.NewNRGBA(image.Rect(0, 0, w, h)))

	return root
}

func TestListPairs(t *testing.T) {
	root := makeSceneDir(t, 3, 20, 12)
	defer os.RemoveAll(root)

	pairs, err := dataset.ListPairs(root, "training")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 3 {
		t.Fatalf("Want 3 pairs. Got %v\n", len(pairs))
	}
	want := filepath.Join(root, "annotations", "training", "img_00.png")
	if pairs[0].Annotation != want {
		t.Errorf("Want: %v\nGot: %v\n", want, pairs[0].Annotation)
	}
}

func TestSceneParseItem(t *testing.T) {
	root := makeSceneDir(t, 2, 20, 12)
	defer os.RemoveAll(root)

	cfg := dataset.DefaultConfig(root, "training")
	cfg.Height = 16
	cfg.Width = 24
	ds, err := dataset.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	item, err := ds.Item(0)
	if err != nil {
		t.Fatal(err)
	}
	s := item.(dataset.Sample)
	if got := s.Image.MustSize(); !reflect.DeepEqual([]int64{3, 16, 24}, got) {
		t.Errorf("Got image shape: %v\n", got)
	}
	if got := s.Label.MustSize(); !reflect.DeepEqual([]int64{16, 24}, got) {
		t.Errorf("Got label shape: %v\n", got)
	}

	// red channel is 1.0, others 0.0
	vals := s.Image.Float64Values()
	if vals[0] < 0.999 || vals[16*24] > 0.001 {
		t.Errorf("Unexpected pixel values: r=%v g=%v\n", vals[0], vals[16*24])
	}

	// nearest resize keeps only existing classes
	for _, v := range s.Label.Int64Values() {
		if v != 3 && v != 7 {
			t.Fatalf("Unexpected class %v\n", v)
		}
	}
	s.Image.MustDrop()
	s.Label.MustDrop()

	if _, err := ds.Item(5); err == nil {
		t.Errorf("Expected error for out of range index.")
	}
}

func TestSceneParseBatch(t *testing.T) {
	root := makeSceneDir(t, 2, 16, 16)
	defer os.RemoveAll(root)

	cfg := dataset.DefaultConfig(root, "training")
	cfg.Height = 8
	cfg.Width = 8
	ds, err := dataset.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var samples []dataset.Sample
	for i := 0; i < ds.Len(); i++ {
		item, err := ds.Item(i)
		if err != nil {
			t.Fatal(err)
		}
		samples = append(samples, item.(dataset.Sample))
	}
	images, labels := dataset.Batch(samples)
	if got := images.MustSize(); !reflect.DeepEqual([]int64{2, 3, 8, 8}, got) {
		t.Errorf("Got images shape: %v\n", got)
	}
	if got := labels.MustSize(); !reflect.DeepEqual([]int64{2, 8, 8}, got) {
		t.Errorf("Got labels shape: %v\n", got)
	}
	images.MustDrop()
	labels.MustDrop()
}

func TestSceneParseFraction(t *testing.T) {
	root := makeSceneDir(t, 10, 8, 8)
	defer os.RemoveAll(root)

	cfg := dataset.DefaultConfig(root, "training")
	cfg.Fraction = 0.01
	ds, err := dataset.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 1 {
		t.Errorf("Want 1 sample. Got %v\n", ds.Len())
	}

	cfg.Fraction = 0
	if _, err := dataset.New(cfg); err == nil {
		t.Errorf("Expected error for zero fraction.")
	}
}

func TestLabelValuesCrop8(t *testing.T) {
	root := makeSceneDir(t, 1, 20, 12)
	defer os.RemoveAll(root)

	cfg := dataset.DefaultConfig(root, "training")
	cfg.Crop8 = true
	cfg.Height = 8
	cfg.Width = 16
	ds, err := dataset.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	vals, err := ds.LabelValues(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 8*16 {
		t.Fatalf("Want %v values. Got %v\n", 8*16, len(vals))
	}
	// first row: left half class 3, right half class 7
	if vals[0] != 3 || vals[15] != 7 {
		t.Errorf("Got first row: %v\n", vals[:16])
	}
}

func TestReadManifest(t *testing.T) {
	root := makeSceneDir(t, 2, 8, 8)
	defer os.RemoveAll(root)

	csv := "image,annotation\n" +
		"images/training/img_00.png,annotations/training/img_00.png\n" +
		"images/training/img_01.png,annotations/training/img_01.png\n"
	manifest := filepath.Join(root, "manifest.csv")
	if err := ioutil.WriteFile(manifest, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	pairs, err := dataset.ReadManifest(manifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Want 2 pairs. Got %v\n", len(pairs))
	}
	want := filepath.Join(root, "images", "training", "img_01.png")
	if pairs[1].Image != want {
		t.Errorf("Want: %v\nGot: %v\n", want, pairs[1].Image)
	}
}
