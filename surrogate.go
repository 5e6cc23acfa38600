// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// Surrogate gradients for the firing step.
//
// The heaviside spike function has a derivative that is zero almost
// everywhere and undefined at the threshold, so gradient descent through a
// spiking layer substitutes a bounded surrogate concentrated around the
// threshold. Each strategy accumulates
//
//	gradU[i] += gradO[i] * g(u[i] - uThreshold)
//
// for its own choice of g, directly looping over the timestep slice
// (no per-element interface dispatch).

// SurrogateGradient supplies the local derivative substituted for the firing
// step during the backward simulation.
type SurrogateGradient interface {
	// Accumulate adds gradO * g(u - uThreshold) into gradU element-wise.
	Accumulate(gradU, gradO, u []float32, uThreshold float32)
}

// DefaultSurrogate returns the reference surrogate: a rectangular window of
// height 0.5 and half-width 1 centered on the threshold. LIFBackward uses it
// when no explicit strategy is given.
func DefaultSurrogate() SurrogateGradient {
	return Rectangular{Height: 0.5, HalfWidth: 1}
}

// Rectangular is a box approximation of the spike derivative:
//
//	g(v) = Height  if |v| <= HalfWidth
//	       0       otherwise
//
// The window bounds are inclusive on both sides.
type Rectangular struct {
	Height    float32
	HalfWidth float32
}

// Accumulate implements SurrogateGradient.
func (r Rectangular) Accumulate(gradU, gradO, u []float32, uThreshold float32) {
	lo, hi := uThreshold-r.HalfWidth, uThreshold+r.HalfWidth
	for i := range gradU {
		if u[i] >= lo && u[i] <= hi {
			gradU[i] += gradO[i] * r.Height
		}
	}
}

// SigmoidDerivative is the derivative of a scaled sigmoid:
//
//	g(v) = Alpha * s * (1 - s),  s = sigmoid(Alpha * v)
//
// Smooth everywhere, peaked at Alpha/4 on the threshold.
type SigmoidDerivative struct {
	Alpha float32
}

// Accumulate implements SurrogateGradient.
func (s SigmoidDerivative) Accumulate(gradU, gradO, u []float32, uThreshold float32) {
	for i := range gradU {
		sig := 1.0 / (1.0 + ExpF32(-s.Alpha*(u[i]-uThreshold)))
		gradU[i] += gradO[i] * s.Alpha * sig * (1 - sig)
	}
}

// Triangular is a tent approximation of the spike derivative:
//
//	g(v) = (1 - |v|/HalfWidth) / HalfWidth  if |v| < HalfWidth
//	       0                                otherwise
//
// Integrates to 1 over the window, like the impulse it stands in for.
type Triangular struct {
	HalfWidth float32
}

// Accumulate implements SurrogateGradient.
func (tr Triangular) Accumulate(gradU, gradO, u []float32, uThreshold float32) {
	inv := 1.0 / tr.HalfWidth
	for i := range gradU {
		v := u[i] - uThreshold
		if v < 0 {
			v = -v
		}
		if v < tr.HalfWidth {
			gradU[i] += gradO[i] * (1 - v*inv) * inv
		}
	}
}
