// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descent

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Perform a backtracking line search along -gₖ starting from λ₀.
// A candidate 𝐗ₖ - λ𝐠ₖ is accepted when it is positive-definite and
// satisfies the sufficient decrease condition:
//   - 𝒇(𝐗ₖ) + λ × 0.25 × ∑𝐠ₖ² ≥ 𝒇(𝐗ₖ - λ𝐠ₖ)
//
// Every rejection contracts λ by the fixed factor 0.1. The search gives up
// after maxBack contractions instead of recursing without bound.
func performLineSearch(d *iterDriver, f0 float64) (status fitStatus, err error) {

	o, w := d.optimizer, d.workspace
	log := o.logger
	g := w.grad

	gNorm := mat.Norm(g, 2)
	gSqr := gNorm * gNorm

	step := o.lr
	for k := 0; k < o.maxBack; k++ {
		w.cand.Scale(-step, g)
		w.cand.Add(w.cand, d.x)

		if !posDefinite(w.cand, w) {
			if log.enable(LogTrace) {
				log.log("  step %9.2e rejected: candidate not positive-definite\n", step)
			}
			step *= searchContract
			continue
		}

		var f float64
		if f, err = o.lossAt(w.cand, w); err != nil {
			return FitSingularX, err
		}
		if f <= f0+step*searchDecrease*gSqr {
			d.x.Copy(w.cand)
			w.step = step
			return FitOK, nil
		}

		if log.enable(LogTrace) {
			log.log("  step %9.2e rejected: f= %12.5e exceeds decrease bound\n", step, f)
		}
		step *= searchContract
	}
	return FitNoDescentStep, errors.Errorf("no acceptable step within %d backtracks", o.maxBack)
}

// posDefinite reports whether the symmetric part of x admits a Cholesky factorization.
func posDefinite(x *mat.Dense, w *Workspace) bool {
	for i := 0; i < w.n; i++ {
		for j := i; j < w.n; j++ {
			w.sym.SetSym(i, j, (x.At(i, j)+x.At(j, i))*half)
		}
	}
	return w.chol.Factorize(w.sym)
}
