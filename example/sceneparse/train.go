package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/sugarme/espnet/dataset"
	"github.com/sugarme/espnet/train"
)

func datasetConfig(split, manifest string, fraction float64) dataset.Config {
	cfg := dataset.DefaultConfig(DataPath, split)
	cfg.Manifest = manifest
	cfg.Height = Height
	cfg.Width = Width
	cfg.Crop8 = Crop8
	cfg.Fraction = fraction
	return cfg
}

func trainConfig() train.Config {
	cfg := train.DefaultConfig()
	cfg.Classes = Classes
	cfg.Height = Height
	cfg.Width = Width
	cfg.P = P
	cfg.Q = Q
	cfg.BatchSize = BatchSize
	cfg.Epochs = Epochs
	cfg.InitialEpoch = InitialEpoch
	cfg.LR = LR
	cfg.Optimizer = OptStr
	cfg.ValidationFreq = ValidationFreq
	cfg.CheckpointDir = CkptDir
	cfg.Resume = ModelPath
	cfg.Device = Device
	cfg.Seed = Seed
	return cfg
}

func runTrain() error {
	trainDS, err := dataset.New(datasetConfig("training", Manifest, Fraction))
	if err != nil {
		return err
	}
	log.Printf("Training samples: %v\n", trainDS.Len())

	var valDS *dataset.SceneParse
	if ValidationFreq > 0 {
		valDS, err = dataset.New(datasetConfig(ValSplit, ValManif, 1))
		if err != nil {
			return err
		}
		log.Printf("Validation samples: %v\n", valDS.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		log.Printf("Interrupt received. Stopping after current batch...\n")
		cancel()
	}()

	if valDS == nil {
		_, err = train.Run(ctx, trainConfig(), trainDS, nil)
	} else {
		_, err = train.Run(ctx, trainConfig(), trainDS, valDS)
	}
	if err == context.Canceled {
		return nil
	}

	return err
}

func runWeights() error {
	trainDS, err := dataset.New(datasetConfig("training", Manifest, Fraction))
	if err != nil {
		return err
	}

	hist, weights, err := train.ClassWeights(trainDS, int(Classes), train.DefaultConfig().NormVal)
	if err != nil {
		return err
	}
	for _, c := range hist.Present() {
		log.Printf("class %3d\t images: %6d\t weight: %8.4f\n", c, hist.Instances[c], weights[c])
	}

	return nil
}
