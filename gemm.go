// SPDX-License-Identifier: CC-BY-NC-4.0
// Copyright (c) 2025-2026 fumi-engineer

package snn

// Pure-Go float32 matrix kernels backing Linear. All matrices are row-major
// and contiguous. The inner loops run k in the middle (ikj order) so the
// innermost traversal is sequential over both b and c, which the compiler
// can keep in cache lines; no attempt at hardware-specific acceleration.

// gemm computes C += A @ B.
// A: [m, k], B: [k, n], C: [m, n]. C must be zeroed by the caller when a
// plain product is wanted.
func gemm(m, n, k int, a, b, c []float32) {
	if m == 0 || n == 0 || k == 0 {
		return
	}
	for i := 0; i < m; i++ {
		aRow := a[i*k : (i+1)*k]
		cRow := c[i*n : (i+1)*n]
		for kk, av := range aRow {
			if av == 0 {
				continue
			}
			bRow := b[kk*n : (kk+1)*n]
			for j, bv := range bRow {
				cRow[j] += av * bv
			}
		}
	}
}

// gemmTransA computes C += A^T @ B without materializing the transpose.
// A: [k, m] (read transposed), B: [k, n], C: [m, n].
// Used by Linear.Backward for dW = gradOutput^T @ input.
func gemmTransA(m, n, k int, a, b, c []float32) {
	if m == 0 || n == 0 || k == 0 {
		return
	}
	for kk := 0; kk < k; kk++ {
		aRow := a[kk*m : (kk+1)*m]
		bRow := b[kk*n : (kk+1)*n]
		for i, av := range aRow {
			if av == 0 {
				continue
			}
			cRow := c[i*n : (i+1)*n]
			for j, bv := range bRow {
				cRow[j] += av * bv
			}
		}
	}
}

// gemmTransB computes C += A @ B^T without materializing the transpose.
// A: [m, k], B: [n, k] (read transposed), C: [m, n].
// Used by Linear.Forward (weight stored as [out, in], need input @ weight^T).
func gemmTransB(m, n, k int, a, b, c []float32) {
	if m == 0 || n == 0 || k == 0 {
		return
	}
	for i := 0; i < m; i++ {
		aRow := a[i*k : (i+1)*k]
		cRow := c[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			bRow := b[j*k : (j+1)*k]
			sum := float32(0)
			for kk, av := range aRow {
				sum += av * bRow[kk]
			}
			cRow[j] += sum
		}
	}
}
