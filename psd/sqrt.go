// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package psd provides helpers for positive-semi-definite symmetric matrices.
package psd

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Sqrt returns 𝐒 with 𝐒·𝐒 ≈ 𝐌 for a positive-semi-definite symmetric 𝐌,
// computed by eigendecomposition:
//   - 𝐌 = 𝐕·𝚍𝚒𝚊𝚐(λ)·𝐕ᵀ  ⟹  𝐒 = 𝐕·𝚍𝚒𝚊𝚐(𝚖𝚊𝚡(λ, λₘᵢₙ)¹ᐟ²)·𝐕ᵀ
//
// Eigenvalues below the floor λₘᵢₙ are clamped before the square root, so
// small negative eigenvalues from rounding noise cannot produce NaN.
func Sqrt(m mat.Symmetric, minEval float64) (*mat.SymDense, error) {

	var eig mat.EigenSym
	if !eig.Factorize(m, true) {
		return nil, errors.New("symmetric eigendecomposition failed")
	}

	evals := eig.Values(nil)
	for i, v := range evals {
		evals[i] = math.Sqrt(math.Max(v, minEval))
	}

	var evecs, vl, root mat.Dense
	eig.VectorsTo(&evecs)

	n := m.SymmetricDim()
	vl.Mul(&evecs, mat.NewDiagDense(n, evals))
	root.Mul(&vl, evecs.T())

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (root.At(i, j)+root.At(j, i))*0.5)
		}
	}
	return s, nil
}
