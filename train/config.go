package train

import (
	"github.com/pkg/errors"
	"github.com/sugarme/gotch"

	"github.com/sugarme/espnet/metric"
)

// Config holds training hyper-parameters.
type Config struct {
	Classes      int64
	Height       int // input height, multiple of 8
	Width        int // input width, multiple of 8
	P            int
	Q            int
	BatchSize    int
	Epochs       int
	InitialEpoch int // epochs already done, e.g. when resuming
	LR           float64
	Optimizer    string // "Adam" or "SGD"
	NormVal      float64
	// ValidationFreq runs validation every ValidationFreq epochs. Zero disables it.
	ValidationFreq int
	CheckpointDir  string
	// Resume is an optional checkpoint file to load before training.
	Resume string
	Device gotch.Device
	// Seed fixes batch shuffling when non-zero.
	Seed int64
}

// DefaultConfig returns config used to train ESPNet on scene parsing.
func DefaultConfig() Config {
	return Config{
		Classes:        101,
		Height:         416,
		Width:          512,
		P:              2,
		Q:              8,
		BatchSize:      12,
		Epochs:         2,
		InitialEpoch:   0,
		LR:             0.001,
		Optimizer:      "Adam",
		NormVal:        metric.DefaultNormVal,
		ValidationFreq: 10,
		CheckpointDir:  "training/training_demo",
		Device:         gotch.CPU,
	}
}

// Validate checks config values.
func (c Config) Validate() error {
	switch {
	case c.Classes < 5:
		return errors.Errorf("at least 5 classes are needed. Got %v", c.Classes)
	case c.Height <= 0 || c.Width <= 0 || c.Height%8 != 0 || c.Width%8 != 0:
		return errors.Errorf("image height and width must be positive multiples of 8. Got %vx%v", c.Height, c.Width)
	case c.BatchSize <= 0:
		return errors.Errorf("batch size must be positive. Got %v", c.BatchSize)
	case c.InitialEpoch < 0 || c.InitialEpoch > c.Epochs:
		return errors.Errorf("initial epoch %v out of range [0, %v]", c.InitialEpoch, c.Epochs)
	case c.LR <= 0:
		return errors.Errorf("learning rate must be positive. Got %v", c.LR)
	case c.ValidationFreq < 0:
		return errors.Errorf("validation frequency must be non-negative. Got %v", c.ValidationFreq)
	case c.CheckpointDir == "":
		return errors.New("checkpoint directory is not set")
	}

	return nil
}
