// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn implements the layers and model builders of Strata.
//
// Models are assembled from declarative layers in one of two styles:
//
// Sequential, a strictly linear chain:
//
//	model := nn.NewSequential(
//	    nn.MustDense(512, nn.DenseConfig{InputDim: 784, Activation: "relu"}),
//	    nn.MustDense(512, nn.DenseConfig{Activation: "relu"}),
//	    nn.MustDense(10, nn.DenseConfig{Activation: "softmax"}),
//	)
//	err := model.Build(nn.BuildOptions{Seed: 42})
//
// or the functional Graph style, where layers are applied to explicit
// node handles, allowing residual connections and shared weights:
//
//	g := nn.NewGraph()
//	in := g.Input(784)
//	shared := nn.MustDense(128, nn.DenseConfig{Activation: "relu"})
//	h1 := g.Apply(shared, in)
//	h2 := g.Apply(shared, h1) // same weights, second position
//	sum := g.Add(h1, h2)      // residual join
//	out := g.Apply(nn.MustDense(10, nn.DenseConfig{Activation: "softmax"}), sum)
//	net, err := g.Build(out, nn.BuildOptions{Seed: 42})
//
// A linear graph builds a model computationally equivalent to the
// matching Sequential: same output shapes, same parameter count.
//
// Activations, initializers, regularizers and losses are selected by
// string identifier through closed registries; an unknown identifier
// fails with ErrUnknownIdentifier at construction time, never at fit
// time. Defaults are package constants, not ambient global state.
//
// Architectures round-trip through JSON (MarshalArchitecture /
// UnmarshalArchitecture) for every declaratively-built model; a model
// containing a Lambda layer fails with ErrNonSerializable and must be
// rebuilt from its original construction code instead.
package nn
