package train

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/dataset"
	"github.com/sugarme/espnet/dutil"
	"github.com/sugarme/espnet/espnet"
	"github.com/sugarme/espnet/metric"
)

// Trainer trains ESPNet on scene parsing samples.
type Trainer struct {
	cfg     Config
	vs      *nn.VarStore
	net     *espnet.ESPNet
	opt     *nn.Optimizer
	weights []float64
	// classWeights is weights as a tensor on cfg.Device.
	classWeights *ts.Tensor
}

// NewTrainer builds the model and optimizer. Weights from cfg.Resume are
// loaded if set.
func NewTrainer(cfg Config, classWeights []float64) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if int64(len(classWeights)) != cfg.Classes {
		return nil, errors.Errorf("expected %v class weights. Got %v", cfg.Classes, len(classWeights))
	}

	vs := nn.NewVarStore(cfg.Device)
	net, err := espnet.New(vs.Root(), espnet.Config{Classes: cfg.Classes, P: cfg.P, Q: cfg.Q})
	if err != nil {
		return nil, err
	}
	if cfg.Resume != "" {
		if _, err := LoadWeights(vs, cfg.Resume, false); err != nil {
			return nil, err
		}
		log.Printf("Resumed weights from %v\n", cfg.Resume)
	}

	var opt *nn.Optimizer
	switch cfg.Optimizer {
	case "SGD":
		opt, err = nn.DefaultSGDConfig().Build(vs, cfg.LR)
	case "Adam":
		opt, err = nn.DefaultAdamConfig().Build(vs, cfg.LR)
	default:
		err = fmt.Errorf("Unspecified/Invalid Optimizer option: '%v'", cfg.Optimizer)
	}
	if err != nil {
		return nil, err
	}

	return &Trainer{
		cfg:          cfg,
		vs:           vs,
		net:          net,
		opt:          opt,
		weights:      classWeights,
		classWeights: metric.WeightsTensor(classWeights, cfg.Device),
	}, nil
}

// VarStore returns the model variables.
func (t *Trainer) VarStore() *nn.VarStore {
	return t.vs
}

// Net returns the model.
func (t *Trainer) Net() *espnet.ESPNet {
	return t.net
}

// metrics groups streaming metrics of one pass.
type metrics struct {
	losses      []float64
	accuracy    *metric.Accuracy
	weightedAcc *metric.Accuracy
	miou        *metric.MeanIoU
}

func newMetrics(classes int, weights []float64) *metrics {
	return &metrics{
		accuracy:    metric.NewAccuracy(),
		weightedAcc: metric.NewWeightedAccuracy(weights),
		miou:        metric.NewMeanIoU(classes),
	}
}

func (m *metrics) update(loss float64, logits, target *ts.Tensor) {
	m.losses = append(m.losses, loss)
	pred := metric.Argmax(logits).MustTo(gotch.CPU, true)
	targetCPU := target.MustTo(gotch.CPU, false)
	m.accuracy.Update(pred, targetCPU)
	m.weightedAcc.Update(pred, targetCPU)
	m.miou.Update(pred, targetCPU)
	pred.MustDrop()
	targetCPU.MustDrop()
}

func (m *metrics) logs() Logs {
	return Logs{
		"loss":              avg(m.losses),
		"accuracy":          m.accuracy.Result(),
		"weighted_accuracy": m.weightedAcc.Result(),
		"mIOU":              m.miou.Result(),
	}
}

func avg(input []float64) float64 {
	if len(input) == 0 {
		return 0
	}
	var sum float64
	for _, v := range input {
		sum += v
	}

	return sum / float64(len(input))
}

func nextBatch(dl *dutil.DataLoader, device gotch.Device) (images, labels *ts.Tensor, err error) {
	s, err := dl.Next()
	if err != nil {
		return nil, nil, err
	}
	samples, ok := s.([]dataset.Sample)
	if !ok {
		return nil, nil, errors.Errorf("expected batch of dataset.Sample. Got %T", s)
	}
	imgTs, labelTs := dataset.Batch(samples)

	return imgTs.MustTo(device, true), labelTs.MustTo(device, true), nil
}

// trainEpoch runs one pass over dl with gradient updates. It stops early
// without error when ctx is done.
func (t *Trainer) trainEpoch(ctx context.Context, dl *dutil.DataLoader) (Logs, error) {
	m := newMetrics(int(t.cfg.Classes), t.weights)
	dl.Reset()
	for dl.HasNext() {
		if ctx.Err() != nil {
			break
		}
		input, target, err := nextBatch(dl, t.cfg.Device)
		if err != nil {
			return nil, err
		}

		logits := t.net.ForwardT(input, true)
		loss := metric.WeightedCrossEntropy(logits, target, t.classWeights)
		t.opt.BackwardStep(loss)
		lossVal := loss.Float64Values()[0]
		m.update(lossVal, logits, target)

		input.MustDrop()
		target.MustDrop()
		logits.MustDrop()
		loss.MustDrop()
	}

	return m.logs(), nil
}

// Evaluate runs one pass over dl without gradients.
func (t *Trainer) Evaluate(dl *dutil.DataLoader) (Logs, error) {
	m := newMetrics(int(t.cfg.Classes), t.weights)
	dl.Reset()
	for dl.HasNext() {
		input, target, err := nextBatch(dl, t.cfg.Device)
		if err != nil {
			return nil, err
		}

		var logits, loss *ts.Tensor
		ts.NoGrad(func() {
			logits = t.net.ForwardT(input, false)
			loss = metric.WeightedCrossEntropy(logits, target, t.classWeights)
		})
		m.update(loss.Float64Values()[0], logits, target)

		input.MustDrop()
		target.MustDrop()
		logits.MustDrop()
		loss.MustDrop()
	}

	return m.logs(), nil
}

// Fit trains from cfg.InitialEpoch to cfg.Epochs. A checkpoint is saved at
// the end of every epoch. When ctx is cancelled, the running epoch is cut
// short, checkpointed, and Fit returns the history with ctx.Err().
func (t *Trainer) Fit(ctx context.Context, trainDS, valDS dutil.Dataset) (*History, error) {
	s, err := dutil.NewBatchSampler(trainDS.Len(), t.cfg.BatchSize, false, true)
	if err != nil {
		return nil, err
	}
	if t.cfg.Seed != 0 {
		s.Seed(t.cfg.Seed)
	}
	trainDL, err := dutil.NewDataLoader(trainDS, s)
	if err != nil {
		return nil, err
	}

	var valDL *dutil.DataLoader
	if valDS != nil && t.cfg.ValidationFreq > 0 {
		valSampler, err := dutil.NewBatchSampler(valDS.Len(), t.cfg.BatchSize, false, false) // no shuffle
		if err != nil {
			return nil, err
		}
		if valDL, err = dutil.NewDataLoader(valDS, valSampler); err != nil {
			return nil, err
		}
	}

	history := &History{}
	var last Logs
	for e := t.cfg.InitialEpoch; e < t.cfg.Epochs; e++ {
		start := time.Now()
		epoch := e + 1

		logs, err := t.trainEpoch(ctx, trainDL)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %v", epoch)
		}

		if valDL != nil && ctx.Err() == nil && epoch%t.cfg.ValidationFreq == 0 {
			vlogs, err := t.Evaluate(valDL)
			if err != nil {
				return history, errors.Wrapf(err, "validating epoch %v", epoch)
			}
			for k, v := range vlogs {
				logs["val_"+k] = v
			}
		}

		path, err := SaveCheckpoint(t.vs, t.cfg.CheckpointDir, epoch)
		if err != nil {
			return history, err
		}
		history.Append(epoch, logs)
		last = logs

		log.Printf("Epoch %02d\t loss: %6.4f\t accuracy: %6.4f\t mIOU: %6.4f\t Taken time: %0.2fMin\t saved: %v\n",
			epoch, logs["loss"], logs["accuracy"], logs["mIOU"], time.Since(start).Minutes(), path)
		if _, ok := logs["val_loss"]; ok {
			log.Printf("Epoch %02d\t val loss: %6.4f\t val accuracy: %6.4f\t val mIOU: %6.4f\n",
				epoch, logs["val_loss"], logs["val_accuracy"], logs["val_mIOU"])
		}

		if ctx.Err() != nil {
			log.Printf("Training interrupted at epoch %v\n", epoch)
			return history, ctx.Err()
		}
	}

	if last != nil {
		log.Printf("Stop training; got log keys: %v\n", last.Keys())
		plotFile := filepath.Join(t.cfg.CheckpointDir, "history.png")
		if err := history.Plot(plotFile, "loss", "val_loss", "mIOU", "val_mIOU"); err != nil {
			log.Printf("Could not plot history: %v\n", err)
		}
	}

	return history, nil
}

// Run computes class weights over trainDS, builds a Trainer and fits it.
func Run(ctx context.Context, cfg Config, trainDS LabeledDataset, valDS dutil.Dataset) (*History, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hist, weights, err := ClassWeights(trainDS, int(cfg.Classes), cfg.NormVal)
	if err != nil {
		return nil, err
	}
	logInstances(hist)

	t, err := NewTrainer(cfg, weights)
	if err != nil {
		return nil, err
	}

	return t.Fit(ctx, trainDS, valDS)
}
