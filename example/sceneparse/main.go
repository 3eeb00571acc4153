package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/sugarme/gotch"
)

// flag variables
var (
	DataPath  string
	ValSplit  string
	Manifest  string
	ValManif  string
	OptStr    string
	CkptDir   string
	ModelPath string
	ImagePath string
	OutPath   string
	Cuda      bool
	Crop8     bool
	task      string
	Device    gotch.Device
)

// hyperparameters
var (
	Classes        int64   // number of classes, background included
	Height         int     // input height
	Width          int     // input width
	P              int     // residual blocks at level 2
	Q              int     // residual blocks at level 3
	LR             float64 // learning rate
	BatchSize      int     // batch size
	Epochs         int     // number of epochs
	InitialEpoch   int     // epochs already trained
	ValidationFreq int     // validate every n epochs
	Fraction       float64 // fraction of training split to use
	Seed           int64   // shuffle seed
)

func init() {
	flag.StringVar(&DataPath, "input", "./input", "specify dataset root directory with images/ and annotations/")
	flag.StringVar(&ValSplit, "val", "validation", "specify validation split name")
	flag.StringVar(&Manifest, "manifest", "", "specify optional training manifest CSV (image,annotation)")
	flag.StringVar(&ValManif, "val-manifest", "", "specify optional validation manifest CSV (image,annotation)")
	flag.StringVar(&OptStr, "opt", "Adam", "specify optimizer type")
	flag.StringVar(&CkptDir, "ckpt", "training/training_demo", "specify checkpoint directory")
	flag.StringVar(&ModelPath, "model", "", "specify model weight '.gt' file to load")
	flag.StringVar(&ImagePath, "image", "", "specify image file for 'predict' task")
	flag.StringVar(&OutPath, "out", "prediction.png", "specify output file for 'predict' task")
	flag.BoolVar(&Cuda, "cuda", false, "specify whether using CUDA or not.")
	flag.BoolVar(&Crop8, "crop8", false, "specify whether to center crop samples to a multiple of 8 before resizing")
	flag.StringVar(&task, "task", "train", "specify task to run: train, weights, summary, model, predict")
	flag.Int64Var(&Classes, "classes", 101, "specify number of classes")
	flag.IntVar(&Height, "height", 416, "specify input image height")
	flag.IntVar(&Width, "width", 512, "specify input image width")
	flag.IntVar(&P, "p", 2, "specify number of residual blocks at level 2")
	flag.IntVar(&Q, "q", 8, "specify number of residual blocks at level 3")
	flag.Float64Var(&LR, "lr", 0.001, "specify learning rate")
	flag.IntVar(&BatchSize, "batch", 12, "specify batch size")
	flag.IntVar(&Epochs, "epochs", 2, "specify number of epochs")
	flag.IntVar(&InitialEpoch, "initial-epoch", 0, "specify number of epochs already trained")
	flag.IntVar(&ValidationFreq, "validate", 10, "specify validation frequency in epochs. 0 disables validation")
	flag.Float64Var(&Fraction, "fraction", 0.01, "specify fraction of the training split to use")
	flag.Int64Var(&Seed, "seed", 0, "specify shuffle seed. 0 means random")
}

func main() {
	flag.Parse()

	DataPath = absPath(DataPath)

	Device = gotch.CPU
	if Cuda {
		Device = gotch.NewCuda().CudaIfAvailable()
	}

	var err error
	switch task {
	case "train":
		err = runTrain()
	case "weights":
		err = runWeights()
	case "summary":
		err = runSummary()
	case "model":
		err = runCheckModel()
	case "predict":
		err = runPredict()
	default:
		err = fmt.Errorf("Unknown 'task' name. Please specify valid 'task' flag to run.")
	}
	if err != nil {
		log.Fatal(err)
	}
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
