// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Command strata trains, evaluates and describes feed-forward
// classifiers from a YAML experiment file.
//
//	strata train -config experiment.yaml
//	strata eval -config experiment.yaml -weights model.strata
//	strata describe -arch model.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/strata-ml/strata/data"
	"github.com/strata-ml/strata/data/mnist"
	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/train"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	case "describe":
		err = runDescribe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("strata %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: strata <train|eval|describe> [flags]")
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "experiment.yaml", "experiment file")
	var o Overrides
	fs.IntVar(&o.Epochs, "epochs", 0, "override train.epochs")
	fs.IntVar(&o.BatchSize, "batch-size", 0, "override train.batch_size")
	fs.Int64Var(&o.Seed, "seed", 0, "override model.seed")
	fs.StringVar(&o.DataDir, "data-dir", "", "override dataset.dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.SeedSet = true
		}
	})

	exp, err := LoadExperiment(*configPath)
	if err != nil {
		return err
	}
	exp.ApplyOverrides(o)

	trainSet, testSet, err := loadDataset(exp)
	if err != nil {
		return err
	}

	net, err := exp.BuildNetwork()
	if err != nil {
		return err
	}
	model := train.NewModel(net)
	if err := model.Compile(exp.TrainConfig()); err != nil {
		return err
	}

	history, err := model.Fit(trainSet, exp.FitOptions())
	if err != nil {
		return err
	}
	final := history[len(history)-1]
	log.Printf("training done epochs=%d loss=%.4f", len(history), final.Loss)

	loss, metrics, err := model.Evaluate(testSet)
	if err != nil {
		return err
	}
	log.Printf("test loss=%.4f metrics=%v", loss, metrics)

	if path := exp.Output.Weights; path != "" {
		if err := model.SaveWeights(path); err != nil {
			return err
		}
		log.Printf("weights saved to %s", path)
	}
	if path := exp.Output.Architecture; path != "" {
		text, err := nn.MarshalArchitecture(net)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, text, 0o644); err != nil {
			return err
		}
		log.Printf("architecture saved to %s", path)
	}
	if path := exp.Output.Checkpoint; path != "" {
		if err := model.SaveCheckpoint(path, exp.Train.Epochs); err != nil {
			return err
		}
		log.Printf("checkpoint saved to %s", path)
	}
	return nil
}

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	configPath := fs.String("config", "experiment.yaml", "experiment file")
	weightsPath := fs.String("weights", "", "weights file (defaults to output.weights)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exp, err := LoadExperiment(*configPath)
	if err != nil {
		return err
	}
	if *weightsPath == "" {
		*weightsPath = exp.Output.Weights
	}
	if *weightsPath == "" {
		return fmt.Errorf("no weights file given")
	}

	_, testSet, err := loadDataset(exp)
	if err != nil {
		return err
	}

	net, err := exp.BuildNetwork()
	if err != nil {
		return err
	}
	model := train.NewModel(net)
	if err := model.Compile(exp.TrainConfig()); err != nil {
		return err
	}
	if err := model.LoadWeights(*weightsPath); err != nil {
		return err
	}

	loss, metrics, err := model.Evaluate(testSet)
	if err != nil {
		return err
	}
	log.Printf("test loss=%.4f metrics=%v", loss, metrics)
	return nil
}

func runDescribe(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	archPath := fs.String("arch", "", "architecture JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archPath == "" {
		return fmt.Errorf("-arch is required")
	}

	text, err := os.ReadFile(*archPath)
	if err != nil {
		return err
	}
	net, err := nn.UnmarshalArchitecture(text)
	if err != nil {
		return err
	}

	arch, err := net.Spec()
	if err != nil {
		return err
	}
	fmt.Printf("kind: %s\n", arch.Kind)
	fmt.Printf("input dim: %d, output dim: %d\n", net.InputDim(), net.OutputDim())
	total := 0
	for _, p := range net.Parameters() {
		total += p.Value().Rows() * p.Value().Cols()
	}
	for _, l := range arch.Layers {
		fmt.Printf("  %-12s %-6s units=%-5d activation=%s\n", l.Name, l.Type, l.Units, l.Activation)
	}
	fmt.Printf("parameters: %d\n", total)
	return nil
}

// loadDataset fetches MNIST and runs the preprocessing pipeline.
func loadDataset(exp *Experiment) (data.Dataset, data.Dataset, error) {
	raw, err := mnist.Fetch(context.Background(), exp.Dataset.Dir)
	if err != nil {
		return data.Dataset{}, data.Dataset{}, err
	}

	trainX := data.Normalize(data.Flatten(raw.TrainImages), 255)
	trainY, err := data.OneHot(raw.TrainLabels, exp.Dataset.Classes)
	if err != nil {
		return data.Dataset{}, data.Dataset{}, err
	}
	trainSet, err := data.New(trainX, trainY)
	if err != nil {
		return data.Dataset{}, data.Dataset{}, err
	}

	testX := data.Normalize(data.Flatten(raw.TestImages), 255)
	testY, err := data.OneHot(raw.TestLabels, exp.Dataset.Classes)
	if err != nil {
		return data.Dataset{}, data.Dataset{}, err
	}
	testSet, err := data.New(testX, testY)
	if err != nil {
		return data.Dataset{}, data.Dataset{}, err
	}
	return trainSet, testSet, nil
}
