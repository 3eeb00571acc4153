package main

import (
	"fmt"
	"log"

	"github.com/sugarme/gotch"
	"github.com/sugarme/gotch/nn"
	ts "github.com/sugarme/gotch/tensor"

	"github.com/sugarme/espnet/espnet"
	"github.com/sugarme/espnet/train"
)

func buildModel() (*nn.VarStore, *espnet.ESPNet, error) {
	vs := nn.NewVarStore(Device)
	net, err := espnet.New(vs.Root(), espnet.Config{Classes: Classes, P: P, Q: Q})
	if err != nil {
		return nil, nil, err
	}

	if ModelPath != "" {
		missing, err := train.LoadWeights(vs, ModelPath, true)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range missing {
			log.Printf("Missing Var: %v\n", m)
		}
	}

	return vs, net, nil
}

// runSummary prints variables sorted by name
func runSummary() error {
	vs, _, err := buildModel()
	if err != nil {
		return err
	}

	infos, total := train.Variables(vs)
	for _, v := range infos {
		fmt.Printf("%v \t\t %v\n", v.Name, v.Shape)
	}
	fmt.Printf("Total params: %v\n", total)

	return nil
}

// runCheckModel forwards a random batch and prints output shape.
func runCheckModel() error {
	_, net, err := buildModel()
	if err != nil {
		return err
	}

	image := ts.MustRand([]int64{int64(BatchSize), 3, int64(Height), int64(Width)}, gotch.Float, Device)
	if err := espnet.Validate(image.MustSize()); err != nil {
		return err
	}
	ts.NoGrad(func() {
		logit := net.ForwardT(image, false)
		fmt.Printf("image: %v\n", image.MustSize())
		fmt.Printf("logit: %v\n", logit.MustSize())
		logit.MustDrop()
	})
	image.MustDrop()

	return nil
}
