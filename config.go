// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// SomaConfig holds the LIF soma parameters shared by every neuron in a layer.
type SomaConfig struct {
	TauM       float32 // membrane time constant, must be nonzero
	UThreshold float32 // firing threshold
	URest      float32 // resting potential (hard-reset target)
	Trainable  bool    // whether tau_m receives gradients
	Surrogate  SurrogateGradient
}

// DefaultLIF returns the standard LIF soma: tau_m=2, threshold=1, rest=0,
// rectangular surrogate, fixed tau_m.
func DefaultLIF() SomaConfig {
	return SomaConfig{TauM: 2.0, UThreshold: 1.0, URest: 0.0, Surrogate: DefaultSurrogate()}
}

// TrainableLIF is DefaultLIF with a learnable membrane time constant.
func TrainableLIF() SomaConfig {
	cfg := DefaultLIF()
	cfg.Trainable = true
	return cfg
}

// NetworkConfig describes a feed-forward spiking network: alternating Linear
// synapse and LIF soma stages over Dims, simulated for TimeSteps steps.
type NetworkConfig struct {
	TimeSteps int   // T, length of the simulated spike train
	Dims      []int // feature sizes: input, hidden..., output
	Soma      SomaConfig
}

// TinyNetwork returns a minimal config for tests: T=8, 8 -> 16 -> 4.
func TinyNetwork() NetworkConfig {
	return NetworkConfig{TimeSteps: 8, Dims: []int{8, 16, 4}, Soma: DefaultLIF()}
}

// SmallNetwork returns a config one size up for benchmarks: T=16, 64 -> 128 -> 10.
func SmallNetwork() NetworkConfig {
	return NetworkConfig{TimeSteps: 16, Dims: []int{64, 128, 10}, Soma: DefaultLIF()}
}

// TotalParams counts the parameters of a network built from this config:
// one [out, in] weight matrix per synapse stage plus a single tau_m per soma
// stage when trainable.
func (c NetworkConfig) TotalParams() int {
	total := 0
	for i := 0; i+1 < len(c.Dims); i++ {
		total += c.Dims[i] * c.Dims[i+1]
		if c.Soma.Trainable {
			total++
		}
	}
	return total
}
