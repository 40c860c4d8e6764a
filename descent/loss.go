// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descent

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Loss evaluates the factorization objective 𝚝𝚛(𝐀ᵀ𝐀·𝐗⁻¹) × 𝚖𝚊𝚡(𝚍𝚒𝚊𝚐 𝐗)
// for target 𝐀 and candidate 𝐗. The candidate must be invertible: a singular
// 𝐗 surfaces as the inversion error of the underlying linear algebra, never
// as a silently swallowed failure.
func Loss(target, x *mat.Dense) (float64, error) {
	n, _ := x.Dims()
	var gram mat.Dense
	gram.Mul(target.T(), target)
	w := &Workspace{
		n:    n,
		inv:  mat.NewDense(n, n, nil),
		prod: mat.NewDense(n, n, nil),
	}
	o := &Optimizer{n: n, gram: &gram}
	return o.lossAt(x, w)
}

// invert stores 𝐗⁻¹ into w.inv.
// An ill-conditioned but solvable system is not a failure,
// while an exactly singular one reports Condition(+Inf).
func (o *Optimizer) invert(x *mat.Dense, w *Workspace) error {
	if err := w.inv.Inverse(x); err != nil {
		if c, ok := err.(mat.Condition); !ok || math.IsInf(float64(c), 1) {
			return err
		}
	}
	return nil
}

// lossAt computes 𝒇(𝐗) = 𝚝𝚛(𝐂·𝐗⁻¹) × 𝚖𝚊𝚡(𝚍𝚒𝚊𝚐 𝐗) with 𝐂 = 𝐀ᵀ𝐀.
func (o *Optimizer) lossAt(x *mat.Dense, w *Workspace) (f float64, err error) {
	if err = o.invert(x, w); err != nil {
		return
	}
	w.prod.Mul(o.gram, w.inv)
	w.numEval++
	return mat.Trace(w.prod) * maxDiag(x), nil
}

// lossAndGrad computes the loss together with its full closed-form gradient:
//
//	∇𝒇(𝐗) = -𝑑·𝐗⁻¹𝐂𝐗⁻¹ + 𝑡·𝐄
//
// where 𝑡 = 𝚝𝚛(𝐂·𝐗⁻¹), 𝑑 = 𝚖𝚊𝚡(𝚍𝚒𝚊𝚐 𝐗) and 𝐄 is diagonal with the
// subgradient of the running maximum split equally over tied entries.
// The gradient is stored in grad, which may alias w.grad.
func (o *Optimizer) lossAndGrad(x *mat.Dense, grad *mat.Dense, w *Workspace) (f float64, err error) {
	if err = o.invert(x, w); err != nil {
		return
	}
	w.prod.Mul(o.gram, w.inv)
	w.numEval++

	t := mat.Trace(w.prod)
	d := maxDiag(x)
	f = t * d

	grad.Mul(w.inv, w.prod) // 𝐗⁻¹𝐂𝐗⁻¹
	grad.Scale(-d, grad)

	ties := 0
	for i := 0; i < w.n; i++ {
		if x.At(i, i) == d {
			ties++
		}
	}
	share := t / float64(ties)
	for i := 0; i < w.n; i++ {
		if x.At(i, i) == d {
			grad.Set(i, i, grad.At(i, i)+share)
		}
	}
	return
}

func maxDiag(x *mat.Dense) float64 {
	n, _ := x.Dims()
	d := x.At(0, 0)
	for i := 1; i < n; i++ {
		d = max(d, x.At(i, i))
	}
	return d
}

// maskDiagonal freezes the iterate diagonal by zeroing the gradient there.
func maskDiagonal(g *mat.Dense) {
	n, _ := g.Dims()
	for i := 0; i < n; i++ {
		g.Set(i, i, zero)
	}
}

// symmetrize orthogonally projects x onto the symmetric matrices: (𝐗 + 𝐗ᵀ)/2.
func symmetrize(x *mat.Dense) {
	n, _ := x.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := (x.At(i, j) + x.At(j, i)) * half
			x.Set(i, j, v)
			x.Set(j, i, v)
		}
	}
}
