// SPDX-License-Identifier: CC-BY-NC-SA-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// TrainConfig holds optimizer and training hyperparameters.
type TrainConfig struct {
	LR          float32 // peak learning rate
	Beta1       float32 // AdamW first moment decay
	Beta2       float32 // AdamW second moment decay
	Eps         float32 // AdamW epsilon (numerical stability)
	WeightDecay float32 // AdamW weight decay coefficient
	GradClip    float32 // max gradient L2 norm
	WarmupSteps int     // linear warmup phase length
	TotalSteps  int     // total training steps (for cosine schedule)
}

// DefaultTrainConfig returns standard training hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LR:          1e-3,
		Beta1:       0.9,
		Beta2:       0.95,
		Eps:         1e-8,
		WeightDecay: 0.01,
		GradClip:    1.0,
		WarmupSteps: 100,
		TotalSteps:  10000,
	}
}

// AdamWState holds the first and second moment estimates for one parameter tensor.
type AdamWState struct {
	M *Tensor // first moment (mean of gradients)
	V *Tensor // second moment (mean of squared gradients)
}

// Trainer encapsulates the network, optimizer state, and LR schedule.
type Trainer struct {
	model  *SpikingNetwork
	config TrainConfig
	step   int
	states []AdamWState // one per parameter tensor
}

// NewTrainer creates a Trainer with AdamW optimizer state initialized to zero.
func NewTrainer(m *SpikingNetwork, cfg TrainConfig) *Trainer {
	params := m.Parameters()
	states := make([]AdamWState, len(params))
	for i, p := range params {
		states[i] = AdamWState{
			M: Zeros(p.Shape(), F32),
			V: Zeros(p.Shape(), F32),
		}
	}
	return &Trainer{model: m, config: cfg, states: states}
}

// GetLR computes the current learning rate using linear warmup + cosine decay.
//
//	warmup:  lr = peak_lr * step / warmup_steps
//	cosine:  lr = min_lr + 0.5*(peak_lr - min_lr)*(1 + cos(pi * progress))
//	min_lr = 0.1 * peak_lr
//
// The ramp prevents instability at the start; the decay settles at 10% of peak.
func (t *Trainer) GetLR() float32 {
	if t.step < t.config.WarmupSteps {
		return t.config.LR * float32(t.step) / float32(t.config.WarmupSteps)
	}
	progress := float32(t.step-t.config.WarmupSteps) / float32(t.config.TotalSteps-t.config.WarmupSteps)
	if progress > 1.0 {
		progress = 1.0
	}
	minLR := t.config.LR * 0.1
	return minLR + 0.5*(t.config.LR-minLR)*(1.0+CosF32(3.1415927*progress))
}

// Step returns the current training step count.
func (t *Trainer) Step() int { return t.step }

// softmaxInPlace converts a vector to probabilities with max-subtraction
// for numerical stability.
func softmaxInPlace(xs []float32) {
	_, maxVal := argmax(xs)
	sum := float32(0)
	for i, x := range xs {
		e := ExpF32(x - maxVal)
		xs[i] = e
		sum += e
	}
	invSum := 1.0 / sum
	for i := range xs {
		xs[i] *= invSum
	}
}

// crossEntropyLoss computes the mean cross-entropy over a batch of rate-coded
// logits (per-class spike counts).
//
//	L = -(1/B) * sum_b log(softmax(counts[b])[target[b]])
//
// Numerically stable via log-sum-exp:
//	log(softmax(x)_i) = x_i - max(x) - log(sum(exp(x - max(x))))
func crossEntropyLoss(counts *Tensor, targets []int) float32 {
	dims := counts.Shape().DimsRef()
	batch, classes := dims[0], dims[1]
	data := counts.DataPtr()

	totalLoss := float32(0)
	for b := 0; b < batch; b++ {
		targetIdx := targets[b]
		if targetIdx < 0 || targetIdx >= classes {
			panic("target index out of range in crossEntropyLoss")
		}
		row := data[b*classes : (b+1)*classes]

		_, maxVal := argmax(row)
		sumExp := float32(0)
		for _, logit := range row {
			sumExp += ExpF32(logit - maxVal)
		}
		totalLoss -= row[targetIdx] - maxVal - LogF32(sumExp)
	}
	return totalLoss / float32(batch)
}

// crossEntropyGrad computes dL/d(counts) for cross-entropy loss.
//
//	grad[b, c] = (softmax(counts[b])[c] - one_hot(target[b])[c]) / B
//
// The standard softmax gradient: prob - target.
func crossEntropyGrad(counts *Tensor, targets []int) *Tensor {
	dims := counts.Shape().DimsRef()
	batch, classes := dims[0], dims[1]

	grad := Zeros(counts.Shape(), F32)
	data := counts.DataPtr()
	gradData := grad.DataPtr()

	for b := 0; b < batch; b++ {
		targetIdx := targets[b]
		if targetIdx < 0 || targetIdx >= classes {
			panic("target index out of range in crossEntropyGrad")
		}
		row := gradData[b*classes : (b+1)*classes]
		copy(row, data[b*classes:(b+1)*classes])
		softmaxInPlace(row)
		// softmax(counts)[target] - 1.0 (the one-hot subtraction)
		row[targetIdx] -= 1.0
	}

	scale := 1.0 / float32(batch)
	for i := range gradData {
		gradData[i] *= scale
	}
	return grad
}

// TrainStep performs a single training step: forward, loss, backward, AdamW
// update. x is a spike train [T, batch, in]; targets holds one class index
// per batch element.
//
// AdamW update rule per parameter:
//
//	m = beta1 * m + (1 - beta1) * g           -- first moment
//	v = beta2 * v + (1 - beta2) * g^2         -- second moment
//	m_hat = m / (1 - beta1^t)                 -- bias correction
//	v_hat = v / (1 - beta2^t)                 -- bias correction
//	w -= lr * (m_hat / (sqrt(v_hat) + eps) + weight_decay * w)
//
// The weight decay term is applied directly to w (decoupled, hence "AdamW"),
// not added to the gradient.
func (t *Trainer) TrainStep(x *Tensor, targets []int) float32 {
	t.step++

	// Zero all parameter gradients and soma state before forward/backward.
	params := t.model.Parameters()
	for _, p := range params {
		p.ZeroGrad()
	}
	t.model.Reset()

	counts := t.model.Forward(x)
	loss := crossEntropyLoss(counts, targets)

	gradCounts := crossEntropyGrad(counts, targets)
	_ = t.model.Backward(gradCounts)

	// Global gradient norm clipping across all parameters.
	globalNormSq := float32(0)
	for _, p := range params {
		if p.Grad != nil {
			for _, g := range p.Grad {
				globalNormSq += g * g
			}
		}
	}
	globalNorm := SqrtF32(globalNormSq)

	clipCoeff := float32(1.0)
	if t.config.GradClip > 0 && globalNorm > t.config.GradClip {
		clipCoeff = t.config.GradClip / (globalNorm + 1e-12)
	}

	lr := t.GetLR()
	mCorr := 1.0 / (1 - PowF32(t.config.Beta1, float32(t.step)))
	vCorr := 1.0 / (1 - PowF32(t.config.Beta2, float32(t.step)))
	b1, b2, eps, wd := t.config.Beta1, t.config.Beta2, t.config.Eps, t.config.WeightDecay

	for i, param := range params {
		// Parameters that received no gradient in this pass keep a nil Grad;
		// skip them so momentum and weight decay don't drift their values.
		if param.Grad == nil {
			continue
		}
		paramData := param.DataPtr()
		mData := t.states[i].M.DataPtr()
		vData := t.states[i].V.DataPtr()
		gradSlice := param.Grad

		for j := range paramData {
			grad := gradSlice[j] * clipCoeff
			mData[j] = b1*mData[j] + (1-b1)*grad
			vData[j] = b2*vData[j] + (1-b2)*grad*grad
			paramData[j] -= lr * (mData[j]*mCorr/(SqrtF32(vData[j]*vCorr)+eps) + wd*paramData[j])
		}
	}

	return loss
}

// Predict runs a forward pass and returns the argmax class per batch element.
func (t *Trainer) Predict(x *Tensor) []int {
	t.model.Reset()
	counts := t.model.Forward(x)
	dims := counts.Shape().DimsRef()
	batch, classes := dims[0], dims[1]
	data := counts.DataPtr()
	out := make([]int, batch)
	for b := 0; b < batch; b++ {
		idx, _ := argmax(data[b*classes : (b+1)*classes])
		out[b] = idx
	}
	return out
}
