// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descent

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace

	x           *mat.Dense
	loss, times []float64
}

// mainLoop is the main execution loop of the iteration process: it evaluates
// the loss and gradient, freezes the gradient diagonal, selects a step,
// projects the iterate back onto the symmetric matrices and records the
// loss/time trajectory. The loop always runs the requested iteration count.
func (d *iterDriver) mainLoop() (status fitStatus, err error) {

	o, w := d.optimizer, d.workspace
	log := o.logger

	// Suppress any warm-up cost charged to the first iteration.
	defer func() {
		if len(d.times) > 0 {
			floats.AddConst(-d.times[0], d.times)
		}
	}()

	start := time.Now()
	for k := 0; k < o.iters; k++ {

		var f float64
		if f, err = o.lossAndGrad(d.x, w.grad, w); err != nil {
			return FitSingularX, err
		}
		maskDiagonal(w.grad)

		if o.armijo {
			if status, err = performLineSearch(d, f); err != nil {
				return
			}
		} else {
			w.cand.Scale(-o.lr, w.grad)
			d.x.Add(d.x, w.cand)
		}
		symmetrize(d.x)

		d.loss = append(d.loss, f)
		d.times = append(d.times, time.Since(start).Seconds())

		if log.enable(LogEval) {
			log.log("At iterate %5d    f= %12.5e    step= %9.2e\n", k, f, w.step)
		}
	}

	if log.enable(LogLast) {
		log.log("Done %d iterations, final f= %12.5e\n", len(d.loss), d.loss[len(d.loss)-1])
	}
	return FitOK, nil
}
