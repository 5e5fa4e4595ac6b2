package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/train"
)

// Experiment is the YAML description of one training run.
type Experiment struct {
	Dataset struct {
		Dir     string `yaml:"dir"`     // IDX cache directory
		Classes int    `yaml:"classes"` // default 10
	} `yaml:"dataset"`

	Model struct {
		Seed     int64       `yaml:"seed"`
		InputDim int         `yaml:"input_dim"` // default 784
		Layers   []LayerConf `yaml:"layers"`
	} `yaml:"model"`

	Train struct {
		Optimizer       string   `yaml:"optimizer"`
		LearningRate    float64  `yaml:"learning_rate"`
		Loss            string   `yaml:"loss"`
		Metrics         []string `yaml:"metrics"`
		BatchSize       int      `yaml:"batch_size"`
		Epochs          int      `yaml:"epochs"`
		Shuffle         bool     `yaml:"shuffle"`
		ValidationSplit float64  `yaml:"validation_split"`
	} `yaml:"train"`

	Output struct {
		Weights      string `yaml:"weights"`
		Architecture string `yaml:"architecture"`
		Checkpoint   string `yaml:"checkpoint"`
	} `yaml:"output"`
}

// LayerConf is one dense layer in the experiment file.
type LayerConf struct {
	Units       int    `yaml:"units"`
	Activation  string `yaml:"activation"`
	Initializer string `yaml:"initializer"`
	Regularizer string `yaml:"regularizer"`
}

// Overrides carries CLI-supplied values that win over the file.
//
// SeedSet records whether -seed was passed at all, so an explicit
// -seed 0 still overrides a non-zero file seed.
type Overrides struct {
	Epochs    int
	BatchSize int
	Seed      int64
	SeedSet   bool
	DataDir   string
}

// LoadExperiment reads and validates an experiment file.
func LoadExperiment(path string) (*Experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	exp := &Experiment{}
	if err := yaml.Unmarshal(raw, exp); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// ApplyOverrides updates the experiment from any non-zero override.
func (e *Experiment) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		e.Train.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		e.Train.BatchSize = o.BatchSize
	}
	if o.SeedSet {
		e.Model.Seed = o.Seed
	}
	if o.DataDir != "" {
		e.Dataset.Dir = o.DataDir
	}
}

// Validate fills defaults and verifies the experiment is runnable.
func (e *Experiment) Validate() error {
	if e.Dataset.Dir == "" {
		return fmt.Errorf("dataset.dir must be set")
	}
	if e.Dataset.Classes <= 0 {
		e.Dataset.Classes = 10
	}
	if e.Model.InputDim <= 0 {
		e.Model.InputDim = 784
	}
	if len(e.Model.Layers) == 0 {
		return fmt.Errorf("model.layers must not be empty")
	}
	for i, l := range e.Model.Layers {
		if l.Units <= 0 {
			return fmt.Errorf("model.layers[%d].units must be > 0 (got %d)", i, l.Units)
		}
	}
	if last := e.Model.Layers[len(e.Model.Layers)-1]; last.Units != e.Dataset.Classes {
		return fmt.Errorf("output layer has %d units, dataset has %d classes", last.Units, e.Dataset.Classes)
	}
	if e.Train.Optimizer == "" {
		e.Train.Optimizer = "adam"
	}
	if e.Train.Loss == "" {
		e.Train.Loss = "categorical_crossentropy"
	}
	if e.Train.BatchSize <= 0 {
		e.Train.BatchSize = 32
	}
	if e.Train.Epochs <= 0 {
		e.Train.Epochs = 1
	}
	if e.Train.ValidationSplit < 0 || e.Train.ValidationSplit >= 1 {
		return fmt.Errorf("train.validation_split must be in [0, 1) (got %g)", e.Train.ValidationSplit)
	}
	return nil
}

// BuildNetwork assembles and builds the sequential model the
// experiment describes.
func (e *Experiment) BuildNetwork() (*nn.Sequential, error) {
	net := nn.NewSequential()
	for i, l := range e.Model.Layers {
		cfg := nn.DenseConfig{
			Activation:  l.Activation,
			Initializer: l.Initializer,
		}
		if i == 0 {
			cfg.InputDim = e.Model.InputDim
		}
		if l.Regularizer != "" {
			reg, err := nn.RegularizerByName(l.Regularizer)
			if err != nil {
				return nil, fmt.Errorf("model.layers[%d]: %w", i, err)
			}
			cfg.Regularizer = reg
		}
		layer, err := nn.NewDense(l.Units, cfg)
		if err != nil {
			return nil, fmt.Errorf("model.layers[%d]: %w", i, err)
		}
		net.Add(layer)
	}
	if err := net.Build(nn.BuildOptions{Seed: e.Model.Seed}); err != nil {
		return nil, err
	}
	return net, nil
}

// TrainConfig maps the experiment to a compile configuration.
func (e *Experiment) TrainConfig() train.Config {
	return train.Config{
		Optimizer:    e.Train.Optimizer,
		LearningRate: e.Train.LearningRate,
		Loss:         e.Train.Loss,
		Metrics:      e.Train.Metrics,
	}
}

// FitOptions maps the experiment to fit options.
func (e *Experiment) FitOptions() train.FitOptions {
	return train.FitOptions{
		BatchSize:       e.Train.BatchSize,
		Epochs:          e.Train.Epochs,
		Shuffle:         e.Train.Shuffle,
		Seed:            e.Model.Seed,
		ValidationSplit: e.Train.ValidationSplit,
	}
}
