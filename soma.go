// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// LIF soma kernels: the discrete-time hard-reset Leaky-Integrate-and-Fire
// recurrence and its hand-derived reverse-mode gradient.
//
// Per timestep t the forward dynamics compose three elementwise steps:
//
//	response: U(t) = H(t-1) + (1/tau_m) * [X(t) - (H(t-1) - u_rest)]
//	firing:   O(t) = heaviside(U(t) - u_threshold)
//	reset:    H(t) = U(t) * (1 - O(t)) + u_rest * O(t)
//
// with H(-1) supplied as the initial potential uInit. The backward pass walks
// t = T-1 .. 0 and differentiates the chain in reverse step order, carrying
// the gradient of H(t-1) as recurrent state and substituting a surrogate
// derivative for the non-differentiable heaviside.
//
// Buffer contract: every buffer is caller-owned and the kernels never
// allocate. u is overwritten; o, h and all grad* buffers are accumulated
// into (+=), so a fresh pass requires zeroed buffers. The core cannot detect
// a non-zeroed accumulator -- that precondition is the caller's.

import (
	"errors"
	"fmt"
	"math"
)

// Validation failure kinds for LIFForward/LIFBackward. Returned errors wrap
// one of these sentinels; match with errors.Is.
var (
	// ErrShapeMismatch reports a time-axis or trailing-shape inconsistency
	// among the o/u/h/x buffers, uInit, or their gradient counterparts.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidParameter reports an out-of-domain parameter: non-positive T,
	// a zero or non-single-element tau_m, or a non-finite threshold.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ---------------------------------------------------------------------------
// Per-timestep forward kernels
//
// Each operates on one timestep slice (trailing dims flattened, row-major).
// tau_m, u_rest and u_threshold broadcast over all elements as plain scalars.
// ---------------------------------------------------------------------------

// responseLIF computes the sub-threshold membrane response, writing u directly:
//
//	u[i] = hPrev[i] + (1/tauM) * (x[i] - (hPrev[i] - uRest))
//
// hPrev is the previous reset potential h[t-1], or uInit at t=0.
func responseLIF(u, x, hPrev []float32, tauM, uRest float32) {
	invTau := 1.0 / tauM
	for i := range u {
		u[i] = hPrev[i] + invTau*(x[i]-(hPrev[i]-uRest))
	}
}

// spikingHeaviside thresholds the membrane potential into {0,1} spikes,
// accumulating into o:
//
//	o[i] += (u[i] >= uThreshold)
func spikingHeaviside(o, u []float32, uThreshold float32) {
	for i := range o {
		if u[i] >= uThreshold {
			o[i] += 1
		}
	}
}

// resetHard computes the post-spike reset potential, accumulating into h:
//
//	h[i] += u[i]*(1 - o[i]) + uRest*o[i]
//
// A spiking neuron is reset to uRest; a silent one keeps its potential.
func resetHard(h, u, o []float32, uRest float32) {
	for i := range h {
		h[i] += u[i]*(1-o[i]) + uRest*o[i]
	}
}

// ---------------------------------------------------------------------------
// Per-timestep backward kernels
// ---------------------------------------------------------------------------

// bpResetHard differentiates resetHard.
//
//	dH/dU = 1 - O  =>  gradU[i] += gradH[i] * (1 - o[i])
//	dH/dO = uRest - U  =>  gradO[i] += gradH[i] * (uRest - u[i])
func bpResetHard(gradH, gradU, gradO, u, o []float32, uRest float32) {
	for i := range gradH {
		g := gradH[i]
		gradU[i] += g * (1 - o[i])
		gradO[i] += g * (uRest - u[i])
	}
}

// bpResponseLIF differentiates responseLIF with respect to all three inputs.
//
//	dU/dX = 1/tau_m           =>  gradX[i] += gradU[i] / tauM
//	dU/dH(t-1) = 1 - 1/tau_m  =>  gradHPrev[i] += gradU[i] * (1 - 1/tauM)
//	dU/dtau_m = -(1/tau_m^2) * (X - (H(t-1) - u_rest))
//
// tau_m is shared across time and space, so its per-element contributions are
// reduced to a single scalar added into gradTauM[0]. Every timestep of the
// backward simulation accumulates into the same element.
func bpResponseLIF(gradU, gradX, gradHPrev, gradTauM, x, hPrev []float32, tauM, uRest float32) {
	invTau := 1.0 / tauM
	negInvTau2 := -invTau * invTau
	tauSum := float32(0)
	for i := range gradU {
		g := gradU[i]
		gradX[i] += g * invTau
		gradHPrev[i] += g * (1 - invTau)
		tauSum += g * negInvTau2 * (x[i] - (hPrev[i] - uRest))
	}
	gradTauM[0] += tauSum
}

// ---------------------------------------------------------------------------
// Time-unrolled simulation
// ---------------------------------------------------------------------------

// LIFForward runs the LIF recurrence over T timesteps.
//
// o, u, h, x all have shape [T, trailing...]; uInit has the trailing shape
// (the h[-1] initial condition); tauM is a single-element tensor. o and h are
// accumulated into and must be zeroed by the caller for a fresh pass; u is
// overwritten. x, uInit and tauM are read-only.
//
// The time loop is strictly sequential: u[t] depends on h[t-1], so iterations
// cannot be reordered. Validation happens before any buffer is touched; on
// error no buffer is mutated.
func LIFForward(o, u, h, x *Tensor, T int, uInit, tauM *Tensor, uRest, uThreshold float32) error {
	if err := validateLIF(o, u, h, x, T, uInit, tauM, uThreshold); err != nil {
		return err
	}
	tau := tauM.data[0]
	stepLen := x.shape.Numel() / T

	oD, uD, hD, xD := o.data, u.data, h.data, x.data
	prev := uInit.data // h[t-1], explicit uInit binding at t=0
	for t := 0; t < T; t++ {
		lo, hi := t*stepLen, (t+1)*stepLen
		uT, oT, hT := uD[lo:hi], oD[lo:hi], hD[lo:hi]
		responseLIF(uT, xD[lo:hi], prev, tau, uRest)
		spikingHeaviside(oT, uT, uThreshold)
		resetHard(hT, uT, oT, uRest)
		prev = hT
	}
	return nil
}

// LIFBackward runs the reverse-mode gradient of LIFForward over T timesteps
// using the reference rectangular surrogate (height 0.5, half-width 1) for
// the firing step.
//
// The six grad* buffers are accumulated into; the caller must zero-initialize
// them (seeding gradO with the loss gradient dL/dO beforehand). o, u, h, x,
// uInit and tauM must be the exact values recorded by a prior LIFForward call
// with the same T, uRest and uThreshold.
func LIFBackward(gradO, gradU, gradH, gradX, gradUInit, gradTauM *Tensor, T int,
	o, u, h, x, uInit, tauM *Tensor, uRest, uThreshold float32) error {
	return LIFBackwardSurrogate(gradO, gradU, gradH, gradX, gradUInit, gradTauM, T,
		o, u, h, x, uInit, tauM, uRest, uThreshold, DefaultSurrogate())
}

// LIFBackwardSurrogate is LIFBackward with an explicit surrogate-gradient
// strategy for the firing step.
//
// Within one timestep the gradient flows in reverse step order
// (reset -> firing -> response). The response gradient targets grad_h[t-1]
// (gradUInit at t=0), which the next-lower iteration then consumes -- the
// strictly decreasing time order is load-bearing.
//
// The "previous potential" handed to the response gradient at interior steps
// is h[t], not h[t-1]: h[t] is the recorded value that feeds u[t+1] in the
// forward recurrence, so the tau_m gradient for step t+1 is formed against it.
// At t=0 the binding is uInit. This indexing deliberately mirrors the forward
// recurrence; changing it breaks the tau_m gradient.
func LIFBackwardSurrogate(gradO, gradU, gradH, gradX, gradUInit, gradTauM *Tensor, T int,
	o, u, h, x, uInit, tauM *Tensor, uRest, uThreshold float32, sg SurrogateGradient) error {
	if err := validateLIF(o, u, h, x, T, uInit, tauM, uThreshold); err != nil {
		return err
	}
	if err := validateLIFGrads(gradO, gradU, gradH, gradX, gradUInit, gradTauM, x, uInit); err != nil {
		return err
	}
	if sg == nil {
		return fmt.Errorf("%w: nil surrogate gradient", ErrInvalidParameter)
	}
	tau := tauM.data[0]
	stepLen := x.shape.Numel() / T

	gO, gU, gH, gX := gradO.data, gradU.data, gradH.data, gradX.data
	oD, uD, hD, xD := o.data, u.data, h.data, x.data
	gTau := gradTauM.data

	for t := T - 1; t >= 0; t-- {
		lo, hi := t*stepLen, (t+1)*stepLen
		bpResetHard(gH[lo:hi], gU[lo:hi], gO[lo:hi], uD[lo:hi], oD[lo:hi], uRest)
		sg.Accumulate(gU[lo:hi], gO[lo:hi], uD[lo:hi], uThreshold)

		gradHPrev := gradUInit.data
		hPrev := uInit.data
		if t > 0 {
			gradHPrev = gH[lo-stepLen : lo]
			hPrev = hD[lo:hi]
		}
		bpResponseLIF(gU[lo:hi], gX[lo:hi], gradHPrev, gTau, xD[lo:hi], hPrev, tau, uRest)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// validateLIF checks the forward-pass preconditions: positive T, finite
// threshold, single-element nonzero tau_m, identical [T, trailing...] shapes
// for o/u/h/x with at least one trailing dimension, and uInit carrying
// exactly that trailing shape.
func validateLIF(o, u, h, x *Tensor, T int, uInit, tauM *Tensor, uThreshold float32) error {
	if T <= 0 {
		return fmt.Errorf("%w: time steps T = %d, want > 0", ErrInvalidParameter, T)
	}
	if math.IsNaN(float64(uThreshold)) || math.IsInf(float64(uThreshold), 0) {
		return fmt.Errorf("%w: non-finite u_threshold", ErrInvalidParameter)
	}
	if tauM == nil || tauM.shape.Numel() != 1 {
		return fmt.Errorf("%w: tau_m must be a single-element tensor", ErrInvalidParameter)
	}
	if tauM.data[0] == 0 {
		return fmt.Errorf("%w: tau_m is zero", ErrInvalidParameter)
	}
	if x == nil || o == nil || u == nil || h == nil || uInit == nil {
		return fmt.Errorf("%w: nil buffer", ErrShapeMismatch)
	}
	if x.shape.NDim() < 2 {
		return fmt.Errorf("%w: x must be [T, trailing...], got %v", ErrShapeMismatch, x.shape)
	}
	if x.shape.At(0) != T {
		return fmt.Errorf("%w: time axis %d != T %d", ErrShapeMismatch, x.shape.At(0), T)
	}
	for _, pair := range [...]struct {
		name string
		t    *Tensor
	}{{"o", o}, {"u", u}, {"h", h}} {
		if !pair.t.shape.Equal(x.shape) {
			return fmt.Errorf("%w: %s shape %v != x shape %v", ErrShapeMismatch, pair.name, pair.t.shape, x.shape)
		}
	}
	if trailing := x.shape.Trailing(); !uInit.shape.Equal(trailing) {
		return fmt.Errorf("%w: u_init shape %v != trailing shape %v", ErrShapeMismatch, uInit.shape, trailing)
	}
	return nil
}

// validateLIFGrads checks that every gradient accumulator matches its forward
// counterpart's shape, and that gradTauM is single-element.
func validateLIFGrads(gradO, gradU, gradH, gradX, gradUInit, gradTauM *Tensor, x, uInit *Tensor) error {
	for _, pair := range [...]struct {
		name string
		t    *Tensor
	}{{"grad_o", gradO}, {"grad_u", gradU}, {"grad_h", gradH}, {"grad_x", gradX}} {
		if pair.t == nil || !pair.t.shape.Equal(x.shape) {
			return fmt.Errorf("%w: %s must match x shape %v", ErrShapeMismatch, pair.name, x.shape)
		}
	}
	if gradUInit == nil || !gradUInit.shape.Equal(uInit.shape) {
		return fmt.Errorf("%w: grad_u_init must match u_init shape %v", ErrShapeMismatch, uInit.shape)
	}
	if gradTauM == nil || gradTauM.shape.Numel() != 1 {
		return fmt.Errorf("%w: grad_tau_m must be a single-element tensor", ErrShapeMismatch)
	}
	return nil
}
