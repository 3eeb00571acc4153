package dataset

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	ts "github.com/sugarme/gotch/tensor"
)

// Config describes where samples live and how they are transformed.
type Config struct {
	// Root holds images/<Split> and annotations/<Split> directories.
	Root  string
	Split string
	// Manifest is an optional CSV file with `image` and `annotation` columns.
	// Relative paths are resolved against the manifest directory. When set,
	// Root and Split are ignored.
	Manifest string
	Height   int
	Width    int
	// Crop8 center-crops samples to a multiple of 8 before resizing.
	Crop8 bool
	// Fraction keeps the first fraction of the sorted samples, in (0, 1].
	Fraction float64
}

// DefaultConfig returns config for scene parsing samples resized to 416x512.
func DefaultConfig(root, split string) Config {
	return Config{
		Root:     root,
		Split:    split,
		Height:   416,
		Width:    512,
		Fraction: 1,
	}
}

// Pair is an image file and its annotation file.
type Pair struct {
	Image      string
	Annotation string
}

// Sample is a transformed image [3 H W] (float, [0, 1]) and its label map
// [H W] (int64 class indices).
type Sample struct {
	Image ts.Tensor
	Label ts.Tensor
}

// SceneParse implements dutil.Dataset for image/annotation pairs.
type SceneParse struct {
	cfg   Config
	pairs []Pair
}

// New creates SceneParse dataset.
func New(cfg Config) (*SceneParse, error) {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return nil, errors.Errorf("invalid sample size %vx%v", cfg.Height, cfg.Width)
	}
	if cfg.Fraction <= 0 || cfg.Fraction > 1 {
		return nil, errors.Errorf("fraction must be in (0, 1]. Got %v", cfg.Fraction)
	}

	var (
		pairs []Pair
		err   error
	)
	if cfg.Manifest != "" {
		pairs, err = ReadManifest(cfg.Manifest)
	} else {
		pairs, err = ListPairs(cfg.Root, cfg.Split)
	}
	if err != nil {
		return nil, err
	}

	return &SceneParse{cfg: cfg, pairs: takeFraction(pairs, cfg.Fraction)}, nil
}

func takeFraction(pairs []Pair, fraction float64) []Pair {
	if fraction >= 1 || len(pairs) == 0 {
		return pairs
	}
	n := int(math.Round(fraction * float64(len(pairs))))
	if n < 1 {
		n = 1
	}

	return pairs[:n]
}

// ListPairs lists images under root/images/split and matches each with
// root/annotations/split/<name>.png. Images without annotation are skipped.
func ListPairs(root, split string) ([]Pair, error) {
	imgDir := filepath.Join(root, "images", split)
	annDir := filepath.Join(root, "annotations", split)

	files, err := ioutil.ReadDir(imgDir)
	if err != nil {
		return nil, errors.Wrap(err, "listing images")
	}

	var pairs []Pair
	for _, f := range files {
		if f.IsDir() || !isImageFile(f.Name()) {
			continue
		}
		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		ann := filepath.Join(annDir, name+".png")
		if _, err := os.Stat(ann); err != nil {
			continue
		}
		pairs = append(pairs, Pair{Image: filepath.Join(imgDir, f.Name()), Annotation: ann})
	}
	if len(pairs) == 0 {
		return nil, errors.Errorf("no image/annotation pairs found in %v", root)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Image < pairs[j].Image })

	return pairs, nil
}

// ReadManifest reads image/annotation pairs from a CSV file with header
// `image,annotation`.
func ReadManifest(filename string) ([]Pair, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, dataframe.HasHeader(true)).Select([]string{"image", "annotation"})
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "reading manifest %v", filename)
	}

	dir := filepath.Dir(filename)
	images := df.Col("image").Records()
	anns := df.Col("annotation").Records()
	pairs := make([]Pair, 0, len(images))
	for i := range images {
		pairs = append(pairs, Pair{Image: resolve(dir, images[i]), Annotation: resolve(dir, anns[i])})
	}
	if len(pairs) == 0 {
		return nil, errors.Errorf("manifest %v has no rows", filename)
	}

	return pairs, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Len implements dutil.Dataset.
func (ds *SceneParse) Len() int {
	return len(ds.pairs)
}

// DType implements dutil.Dataset.
func (ds *SceneParse) DType() reflect.Type {
	return reflect.TypeOf(Sample{})
}

func (ds *SceneParse) loadLabel(idx int) (*ts.Tensor, error) {
	ann, err := ReadImage(ds.pairs[idx].Annotation)
	if err != nil {
		return nil, err
	}

	return LabelTensor(LabelPlane(ann), ds.cfg.Width, ds.cfg.Height, ds.cfg.Crop8)
}

// Item implements dutil.Dataset. It returns a Sample.
func (ds *SceneParse) Item(idx int) (interface{}, error) {
	if idx < 0 || idx >= len(ds.pairs) {
		return nil, errors.Errorf("index %v out of range [0, %v)", idx, len(ds.pairs))
	}

	imgTs, err := LoadImageTensor(ds.pairs[idx].Image, ds.cfg.Width, ds.cfg.Height, ds.cfg.Crop8)
	if err != nil {
		return nil, err
	}
	labelTs, err := ds.loadLabel(idx)
	if err != nil {
		imgTs.MustDrop()
		return nil, err
	}

	return Sample{
		Image: *imgTs,
		Label: *labelTs,
	}, nil
}

// LabelValues loads only the transformed label map of sample idx as flat
// class indices.
func (ds *SceneParse) LabelValues(idx int) ([]int64, error) {
	if idx < 0 || idx >= len(ds.pairs) {
		return nil, errors.Errorf("index %v out of range [0, %v)", idx, len(ds.pairs))
	}
	label, err := ds.loadLabel(idx)
	if err != nil {
		return nil, err
	}
	vals := label.Int64Values()
	label.MustDrop()

	return vals, nil
}

// Batch stacks samples into images [B 3 H W] and labels [B H W]. Sample
// tensors are dropped.
func Batch(samples []Sample) (images, labels *ts.Tensor) {
	var img, label []ts.Tensor
	for _, s := range samples {
		img = append(img, s.Image)
		label = append(label, s.Label)
	}
	images = ts.MustStack(img, 0)
	for _, x := range img {
		x.MustDrop()
	}
	labels = ts.MustStack(label, 0)
	for _, x := range label {
		x.MustDrop()
	}

	return images, labels
}
