// SPDX-License-Identifier: CC-BY-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

import (
	"math/rand"
	"testing"
)

// Benchmarks for the hot paths: the fused LIF kernels, a full network
// forward, and one optimizer step. Shapes follow SmallNetwork so numbers
// stay comparable across changes.

func benchInput(T, batch, features int) *Tensor {
	rng := rand.New(rand.NewSource(42))
	data := make([]float32, T*batch*features)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return FromSlice(data, NewShape(T, batch, features))
}

func BenchmarkLIFForward(b *testing.B) {
	const (
		T        = 16
		batch    = 32
		features = 128
	)
	x := benchInput(T, batch, features)
	uInit := Zeros(x.Shape().Trailing(), F32)
	tau := Scalar(2.0)
	o := New(x.Shape(), F32)
	u := New(x.Shape(), F32)
	h := New(x.Shape(), F32)

	b.SetBytes(int64(x.Shape().Numel() * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.ZeroInPlace()
		h.ZeroInPlace()
		if err := LIFForward(o, u, h, x, T, uInit, tau, 0, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLIFBackward(b *testing.B) {
	const (
		T        = 16
		batch    = 32
		features = 128
	)
	x := benchInput(T, batch, features)
	uInit := Zeros(x.Shape().Trailing(), F32)
	tau := Scalar(2.0)
	o := New(x.Shape(), F32)
	u := New(x.Shape(), F32)
	h := New(x.Shape(), F32)
	if err := LIFForward(o, u, h, x, T, uInit, tau, 0, 1); err != nil {
		b.Fatal(err)
	}

	gradO := New(x.Shape(), F32)
	gradU := New(x.Shape(), F32)
	gradH := New(x.Shape(), F32)
	gradX := New(x.Shape(), F32)
	gradUInit := New(uInit.Shape(), F32)
	gradTauM := New(NewShape(1), F32)

	b.SetBytes(int64(x.Shape().Numel() * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gradO.FillInPlace(1)
		gradU.ZeroInPlace()
		gradH.ZeroInPlace()
		gradX.ZeroInPlace()
		gradUInit.ZeroInPlace()
		gradTauM.ZeroInPlace()
		err := LIFBackward(gradO, gradU, gradH, gradX, gradUInit, gradTauM, T,
			o, u, h, x, uInit, tau, 0, 1)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNetworkForward(b *testing.B) {
	cfg := SmallNetwork()
	m := NewSpikingNetwork(cfg)
	x := benchInput(cfg.TimeSteps, 32, cfg.Dims[0])

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Reset()
		m.Forward(x)
	}
}

func BenchmarkTrainStep(b *testing.B) {
	cfg := SmallNetwork()
	m := NewSpikingNetwork(cfg)
	trainer := NewTrainer(m, DefaultTrainConfig())
	x := benchInput(cfg.TimeSteps, 32, cfg.Dims[0])
	targets := make([]int, 32)
	for i := range targets {
		targets[i] = i % cfg.Dims[len(cfg.Dims)-1]
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		trainer.TrainStep(x, targets)
	}
}
