// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// SpikingNetwork is a feed-forward spiking classifier: alternating Linear
// synapse and LIFNode soma stages applied to a spike train [T, batch, in],
// followed by a rate-coded readout that sums each output neuron's spikes
// over the time axis. The spike counts act as logits.
//
//	x [T,batch,in] -> Linear -> LIF -> ... -> Linear -> LIF -> sum over t -> [batch, out]
type SpikingNetwork struct {
	config NetworkConfig
	layers []Layer
	lastT  int // time axis of the last forward, for readout backward
}

// NewSpikingNetwork constructs the full network from a config: one
// Linear+LIFNode pair per consecutive Dims entry.
func NewSpikingNetwork(cfg NetworkConfig) *SpikingNetwork {
	if len(cfg.Dims) < 2 {
		panic("NetworkConfig.Dims needs at least input and output sizes")
	}
	layers := make([]Layer, 0, 2*(len(cfg.Dims)-1))
	for i := 0; i+1 < len(cfg.Dims); i++ {
		layers = append(layers, NewLinear(cfg.Dims[i], cfg.Dims[i+1], false))
		layers = append(layers, NewLIFNode(cfg.Soma))
	}
	return &SpikingNetwork{config: cfg, layers: layers}
}

// NewTiny creates a minimal network for testing.
func NewTiny() *SpikingNetwork { return NewSpikingNetwork(TinyNetwork()) }

// Config returns the network's configuration.
func (m *SpikingNetwork) Config() NetworkConfig { return m.config }

// Forward runs the spike train through every stage and returns per-class
// spike counts [batch, out] (rate-coded logits).
func (m *SpikingNetwork) Forward(x *Tensor) *Tensor {
	m.lastT = x.Shape().At(0)
	for _, layer := range m.layers {
		x = layer.Forward(x)
	}
	return sumOverTime(x)
}

// Backward propagates dL/d(counts) [batch, out] through the readout and all
// stages in reverse, returning dL/dx [T, batch, in]. Parameter gradients land
// on the tensors returned by Parameters().
func (m *SpikingNetwork) Backward(gradCounts *Tensor) *Tensor {
	grad := spreadOverTime(gradCounts, m.lastT)
	for i := len(m.layers) - 1; i >= 0; i-- {
		grad = m.layers[i].Backward(grad)
	}
	return grad
}

// Parameters returns all trainable tensors: synapse weights and, when
// configured, soma time constants.
func (m *SpikingNetwork) Parameters() []*Tensor {
	groups := make([][]*Tensor, len(m.layers))
	for i, layer := range m.layers {
		groups[i] = layer.Parameters()
	}
	return concatParams(groups...)
}

// Reset clears the soma initial potentials so the next Forward starts every
// neuron from rest. Call between independent sequences.
func (m *SpikingNetwork) Reset() {
	for _, layer := range m.layers {
		if n, ok := layer.(*LIFNode); ok {
			n.Reset()
		}
	}
}

// sumOverTime reduces [T, trailing...] to [trailing...] by summing the
// leading time axis: the spike-count readout.
func sumOverTime(x *Tensor) *Tensor {
	T := x.Shape().At(0)
	out := New(x.Shape().Trailing(), F32)
	src, dst := x.DataPtr(), out.DataPtr()
	stepLen := len(dst)
	for t := 0; t < T; t++ {
		step := src[t*stepLen : (t+1)*stepLen]
		for i, v := range step {
			dst[i] += v
		}
	}
	return out
}

// spreadOverTime is the gradient of sumOverTime: it replicates
// grad [trailing...] across T timesteps, since d(sum)/d(o[t]) = 1 for all t.
func spreadOverTime(grad *Tensor, T int) *Tensor {
	stepLen := grad.Shape().Numel()
	dims := append([]int{T}, grad.Shape().DimsRef()...)
	out := New(NewShape(dims...), F32)
	src, dst := grad.DataPtr(), out.DataPtr()
	for t := 0; t < T; t++ {
		copy(dst[t*stepLen:(t+1)*stepLen], src)
	}
	return out
}
