// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

import "math/rand"

// Encoders turn analog feature vectors into spike trains with a leading time
// axis, the input representation the network consumes.

// PoissonEncoder emits a Bernoulli spike train: at each timestep every
// feature spikes independently with probability equal to its value (clamped
// to [0,1]). Over many steps the firing rate approaches the input intensity.
type PoissonEncoder struct {
	timeSteps int
	rng       *rand.Rand
}

// NewPoissonEncoder creates a rate encoder over T timesteps with a seeded
// generator so encodings are reproducible.
func NewPoissonEncoder(timeSteps int, seed int64) *PoissonEncoder {
	return &PoissonEncoder{timeSteps: timeSteps, rng: rand.New(rand.NewSource(seed))}
}

// Encode maps x [batch, features] (values in [0,1]) to a {0,1} spike train
// [T, batch, features].
func (e *PoissonEncoder) Encode(x *Tensor) *Tensor {
	stepLen := x.Shape().Numel()
	dims := append([]int{e.timeSteps}, x.Shape().DimsRef()...)
	out := New(NewShape(dims...), F32)
	src, dst := x.DataPtr(), out.DataPtr()
	for t := 0; t < e.timeSteps; t++ {
		step := dst[t*stepLen : (t+1)*stepLen]
		for i, p := range src {
			if p > 1 {
				p = 1
			}
			if p > 0 && e.rng.Float32() < p {
				step[i] = 1
			}
		}
	}
	return out
}

// DirectEncoder replicates the analog input unchanged across T timesteps,
// feeding the same current at every step. Useful when the first synapse
// should see real-valued intensities instead of stochastic spikes.
type DirectEncoder struct {
	timeSteps int
}

// NewDirectEncoder creates a constant-current encoder over T timesteps.
func NewDirectEncoder(timeSteps int) *DirectEncoder {
	return &DirectEncoder{timeSteps: timeSteps}
}

// Encode maps x [batch, features] to [T, batch, features] by replication.
func (e *DirectEncoder) Encode(x *Tensor) *Tensor {
	return spreadOverTime(x, e.timeSteps)
}
