// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psd

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Normalize maps a strictly positive weight vector v onto the unit-diagonal
// symmetric matrix relating v to the factorization of 𝐀:
//   - 𝐒 = (𝚍𝚒𝚊𝚐(v¹ᐟ²)·𝐀ᵀ𝐀·𝚍𝚒𝚊𝚐(v¹ᐟ²))¹ᐟ²
//   - 𝐗 = 𝚍𝚒𝚊𝚐(v⁻¹ᐟ²)·𝐒·𝚍𝚒𝚊𝚐(v⁻¹ᐟ²)
//
// with 𝐗 rescaled a second time by the inverse square root of its own
// diagonal so the result carries an all-ones diagonal. A fixed point of the
// weight-vector update rule already satisfies the normalization, which makes
// the transform a no-op there; between iterations it puts fixed-point and
// descent iterates on common ground.
//
// When root is non-nil it is trusted as the precomputed square root 𝐒 and a
// may be nil; no validation of the root is performed.
func Normalize(a *mat.Dense, v []float64, root mat.Symmetric) (*mat.SymDense, error) {

	n := len(v)
	switch {
	case n == 0:
		return nil, errors.New("weight vector is required")
	case root == nil && a == nil:
		return nil, errors.New("either target matrix or precomputed square root is required")
	case root != nil && root.SymmetricDim() != n:
		return nil, errors.New("square root dimension must equal to weight size")
	}

	sqrtV := make([]float64, n)
	invSqrtV := make([]float64, n)
	for i, w := range v {
		if w <= 0 || math.IsNaN(w) {
			return nil, errors.New("weights must be strictly positive")
		}
		sqrtV[i] = math.Sqrt(w)
		invSqrtV[i] = 1 / sqrtV[i]
	}

	if root == nil {
		if r, c := a.Dims(); r != c || c != n {
			return nil, errors.New("target dimension must equal to weight size")
		}
		var gram, sand mat.Dense
		gram.Mul(a.T(), a)
		sand.Mul(mat.NewDiagDense(n, sqrtV), &gram)
		gram.Mul(&sand, mat.NewDiagDense(n, sqrtV))

		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, (gram.At(i, j)+gram.At(j, i))*0.5)
			}
		}
		var err error
		if root, err = Sqrt(sym, 0); err != nil {
			return nil, err
		}
	}

	var tmp, x mat.Dense
	tmp.Mul(mat.NewDiagDense(n, invSqrtV), root)
	x.Mul(&tmp, mat.NewDiagDense(n, invSqrtV))

	// Force an all-ones diagonal.
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1 / math.Sqrt(x.At(i, i))
	}
	normalized := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			normalized.SetSym(i, j, scale[i]*scale[j]*(x.At(i, j)+x.At(j, i))*0.5)
		}
	}
	return normalized, nil
}
