// SPDX-License-Identifier: CC-BY-NC-SA-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// Layer is the common interface for network layers with forward/backward
// passes and parameter access (for the optimizer).
type Layer interface {
	Forward(input *Tensor) *Tensor
	Backward(gradOutput *Tensor) *Tensor
	Parameters() []*Tensor
}

// ---------------------------------------------------------------------------
// Linear (synapse)
// ---------------------------------------------------------------------------

// Linear computes y = x @ W^T + b (optional bias). In a spiking network it
// plays the synapse role: it integrates the previous layer's spike train into
// the post-synaptic input current, applied independently at every timestep.
//
// Weight shape: [out_features, in_features] (transposed layout so the forward
// pass multiplies against W^T without materializing a transpose).
type Linear struct {
	weight    *Tensor
	bias      *Tensor
	inFeat    int
	outFeat   int
	useBias   bool
	lastInput *Tensor // cached for backward pass
}

// NewLinear creates a linear layer with Kaiming initialization: N(0, sqrt(2/in)).
func NewLinear(inFeatures, outFeatures int, useBias bool) *Linear {
	std := SqrtF32(2.0 / float32(inFeatures))
	l := &Linear{
		weight:  RandnWithStd(NewShape(outFeatures, inFeatures), F32, std),
		inFeat:  inFeatures,
		outFeat: outFeatures,
		useBias: useBias,
	}
	if useBias {
		l.bias = Zeros(NewShape(outFeatures), F32)
	}
	return l
}

// Forward computes y = x @ W^T (+ bias). Input may be any shape where the
// last dim is in_features; leading dims ([T, batch] for a spike train) are
// treated as a flat batch.
func (l *Linear) Forward(input *Tensor) *Tensor {
	l.lastInput = input
	batchDims, batchSize, _ := splitLast(input.Shape().DimsRef())

	output := New(NewShape(batchSize, l.outFeat), F32)
	gemmTransB(batchSize, l.outFeat, l.inFeat, input.DataPtr(), l.weight.DataPtr(), output.DataPtr())

	if l.useBias {
		out, b := output.DataPtr(), l.bias.DataPtr()
		for i := 0; i < batchSize; i++ {
			row := out[i*l.outFeat : (i+1)*l.outFeat]
			for j := range row {
				row[j] += b[j]
			}
		}
	}

	return output.Reshape(withLastDim(batchDims, l.outFeat))
}

// Backward computes dL/dx = dL/dy @ W (the input gradient) and accumulates
// weight and bias gradients: dW = gradOutput^T @ input, db = sum(gradOutput).
func (l *Linear) Backward(gradOutput *Tensor) *Tensor {
	if l.lastInput == nil {
		panic("backward called before forward")
	}
	inputShape := l.lastInput.Shape()
	_, batchSize, _ := splitLast(gradOutput.Shape().DimsRef())
	fgData := gradOutput.DataPtr()
	fiData := l.lastInput.DataPtr()

	// dX = gradOutput @ W -> [batchSize, inFeat]
	gradInput := New(NewShape(batchSize, l.inFeat), F32)
	gemm(batchSize, l.inFeat, l.outFeat, fgData, l.weight.DataPtr(), gradInput.DataPtr())

	// dW = gradOutput^T @ input -> [outFeat, inFeat]
	dW := make([]float32, l.outFeat*l.inFeat)
	gemmTransA(l.outFeat, l.inFeat, batchSize, fgData, fiData, dW)
	l.weight.AccumulateGrad(dW)

	// db = sum(gradOutput, axis=0) -> [outFeat]
	if l.useBias && l.bias != nil {
		db := make([]float32, l.outFeat)
		for i := 0; i < batchSize; i++ {
			row := fgData[i*l.outFeat : (i+1)*l.outFeat]
			for j := range row {
				db[j] += row[j]
			}
		}
		l.bias.AccumulateGrad(db)
	}

	return gradInput.Reshape(inputShape)
}

// Parameters returns the weight (and bias, if present).
func (l *Linear) Parameters() []*Tensor {
	if l.useBias {
		return []*Tensor{l.weight, l.bias}
	}
	return []*Tensor{l.weight}
}

// InFeatures returns the input dimension.
func (l *Linear) InFeatures() int { return l.inFeat }

// OutFeatures returns the output dimension.
func (l *Linear) OutFeatures() int { return l.outFeat }

// ---------------------------------------------------------------------------
// LIFNode (soma)
// ---------------------------------------------------------------------------

// LIFNode wraps the fused LIF kernels (soma.go) as a Layer. Forward takes a
// post-synaptic current train [T, batch, neurons] and emits the spike train
// of the same shape; Backward runs the time-reversed gradient simulation and
// returns dL/dx, accumulating the tau_m gradient when the time constant is
// trainable.
//
// The layer owns the o/u/h trajectory buffers (freshly zero-allocated each
// forward call, satisfying the kernel accumulation contract) and records them
// for the backward pass, mirroring how an autograd fused op saves its
// forward tensors.
type LIFNode struct {
	tauM       *Tensor // single element, Grad-carrying when trainable
	uThreshold float32
	uRest      float32
	trainable  bool
	surrogate  SurrogateGradient

	uInit               *Tensor // h[-1]; filled with uRest, sized on first Forward
	lastO, lastU, lastH *Tensor
	lastX               *Tensor
	lastT               int
}

// NewLIFNode creates a LIF soma layer from cfg. A nil cfg.Surrogate falls
// back to the rectangular default.
func NewLIFNode(cfg SomaConfig) *LIFNode {
	sg := cfg.Surrogate
	if sg == nil {
		sg = DefaultSurrogate()
	}
	if cfg.TauM == 0 {
		panic("LIFNode: tau_m must be nonzero")
	}
	return &LIFNode{
		tauM:       Scalar(cfg.TauM),
		uThreshold: cfg.UThreshold,
		uRest:      cfg.URest,
		trainable:  cfg.Trainable,
		surrogate:  sg,
	}
}

// Forward simulates the soma over the leading time axis of input [T, ...]
// and returns the {0,1} spike train.
func (n *LIFNode) Forward(input *Tensor) *Tensor {
	T := input.Shape().At(0)
	trailing := input.Shape().Trailing()
	if n.uInit == nil || !n.uInit.Shape().Equal(trailing) {
		n.uInit = Full(trailing, F32, n.uRest)
	}

	o := New(input.Shape(), F32)
	u := New(input.Shape(), F32)
	h := New(input.Shape(), F32)
	if err := LIFForward(o, u, h, input, T, n.uInit, n.tauM, n.uRest, n.uThreshold); err != nil {
		panic("LIFNode.Forward: " + err.Error())
	}

	n.lastO, n.lastU, n.lastH, n.lastX, n.lastT = o, u, h, input, T
	return o
}

// Backward consumes dL/dO for the spike train emitted by the last Forward
// and returns dL/dX. The tau_m gradient is accumulated onto the parameter
// tensor when trainable, discarded otherwise.
func (n *LIFNode) Backward(gradOutput *Tensor) *Tensor {
	if n.lastX == nil {
		panic("backward called before forward")
	}
	// gradO doubles as the seed (dL/dO) and the in-pass accumulator for the
	// reset-step contribution; clone so the caller's tensor stays intact.
	gradO := gradOutput.Clone()
	gradU := New(gradOutput.Shape(), F32)
	gradH := New(gradOutput.Shape(), F32)
	gradX := New(gradOutput.Shape(), F32)
	gradUInit := New(n.uInit.Shape(), F32)
	gradTauM := New(NewShape(1), F32)

	err := LIFBackwardSurrogate(gradO, gradU, gradH, gradX, gradUInit, gradTauM, n.lastT,
		n.lastO, n.lastU, n.lastH, n.lastX, n.uInit, n.tauM, n.uRest, n.uThreshold, n.surrogate)
	if err != nil {
		panic("LIFNode.Backward: " + err.Error())
	}

	if n.trainable {
		n.tauM.AccumulateGrad(gradTauM.DataPtr())
	}
	return gradX
}

// Parameters returns tau_m when trainable, nothing otherwise.
func (n *LIFNode) Parameters() []*Tensor {
	if n.trainable {
		return []*Tensor{n.tauM}
	}
	return nil
}

// Reset clears the stored initial potential so the next Forward starts a
// fresh sequence from the resting potential.
func (n *LIFNode) Reset() { n.uInit = nil }

// TauM returns the current membrane time constant value.
func (n *LIFNode) TauM() float32 { return n.tauM.DataPtr()[0] }
