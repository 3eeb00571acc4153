package main

import (
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/sugarme/espnet/dataset"
	"github.com/sugarme/espnet/train"
)

// runPredict segments an image and writes the class mask over it.
func runPredict() error {
	if ImagePath == "" {
		return fmt.Errorf("Please specify an image with '-image' flag.")
	}
	_, net, err := buildModel()
	if err != nil {
		return err
	}

	img, err := dataset.ReadImage(ImagePath)
	if err != nil {
		return err
	}
	classMap, resized, err := train.Predict(net, img, Width, Height, Device)
	if err != nil {
		return err
	}

	overlay, err := train.Overlay(resized, classMap, 128) // 50% opacity
	if err != nil {
		return err
	}
	b := img.Bounds()
	scaled := train.ScaleTo(overlay, b.Dx(), b.Dy())

	out, err := os.Create(OutPath)
	if err != nil {
		return err
	}
	if err := png.Encode(out, scaled); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	log.Printf("Prediction saved to %v\n", OutPath)

	return nil
}
