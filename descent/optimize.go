// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package descent minimizes the matrix-factorization objective
//
//	𝒇(𝐗) = 𝚝𝚛(𝐀ᵀ𝐀·𝐗⁻¹) × 𝚖𝚊𝚡(𝚍𝚒𝚊𝚐 𝐗)
//
// over symmetric positive-definite iterates 𝐗 using gradient descent with an
// optional Armijo backtracking line search. The gradient diagonal is frozen
// and every iterate is orthogonally projected back onto the symmetric
// matrices, so a symmetric positive-definite initial guess stays on the
// manifold for the whole run.
package descent

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line at the end of the run
	LogLast LogLevel = 0
	// LogEval print loss and accepted step size at every iteration
	LogEval LogLevel = 1
	// LogTrace print also every rejected line-search candidate
	LogTrace LogLevel = 99
)

// Logger handles logging output for the optimizer.
// Note the writer must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Problem specifies the factorization problem for the descent optimizer.
type Problem struct {
	// The square matrix 𝐀 being factorized.
	Target *mat.Dense
	// The exact number of gradient steps to run. There is no early
	// stopping: the loop always performs Iters iterations.
	Iters int
	// The initial step size λ₀ of every iteration.
	LearnRate float64
	// Select the Armijo backtracking line search.
	// When false a fixed step λ₀ is taken at every iteration.
	Armijo bool
	// The bound on step contractions per iteration (default 60).
	MaxBacktracks int
}

// New creates a new gradient-descent optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}

	var n int
	if p.Target != nil {
		r, c := p.Target.Dims()
		if r != c {
			err = errors.New("target matrix must be square")
			return
		}
		n = r
	}

	maxBack := p.MaxBacktracks
	if maxBack <= 0 {
		maxBack = searchMaxSteps
	}

	switch {
	case p.Target == nil:
		err = errors.New("target matrix is required")
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case p.Iters <= 0:
		err = errors.New("iteration count must greater than 0")
	case math.IsNaN(p.LearnRate) || p.LearnRate <= zero:
		err = errors.New("learning rate must greater than 0")
	}
	if err != nil {
		return
	}

	// The Gram matrix 𝐀ᵀ𝐀 is fixed across the whole run.
	gram := mat.NewDense(n, n, nil)
	gram.Mul(p.Target.T(), p.Target)

	optimizer = &Optimizer{
		n:       n,
		iters:   p.Iters,
		lr:      p.LearnRate,
		armijo:  p.Armijo,
		maxBack: maxBack,
		gram:    gram,
		logger:  *logger,
	}
	return
}

// Optimizer implemented using gradient descent with Armijo backtracking.
type Optimizer struct {
	n       int
	iters   int
	lr      float64
	armijo  bool
	maxBack int
	gram    *mat.Dense
	logger  Logger
}

// Workspace contains the scratch matrices of the optimization process.
// Given problem dimension n, total work space is approximately float64[4n² + n(n+1)/2].
type Workspace struct {
	n int

	inv  *mat.Dense    // 𝐗⁻¹
	prod *mat.Dense    // 𝐀ᵀ𝐀·𝐗⁻¹
	grad *mat.Dense    // masked gradient
	cand *mat.Dense    // line-search candidate
	sym  *mat.SymDense // symmetric view for factorization checks
	chol mat.Cholesky

	step    float64 // last accepted step size
	numEval int     // loss evaluations of the current run
}

// Result contains the final result of the optimization process.
type Result struct {
	X       *mat.Dense // Final iterate, symmetric.
	Loss    []float64  // Loss at the start of each completed iteration.
	Elapsed []float64  // Seconds since loop start, first sample normalized to 0.
	Summary            // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  fitStatus // Final status after optimization.
	NumIter int       // Number of iterations completed.
	NumEval int       // Number of loss evaluations performed.
}

// Init allocate the workspace for the descent optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	n := o.n
	return &Workspace{
		n:    n,
		inv:  mat.NewDense(n, n, nil),
		prod: mat.NewDense(n, n, nil),
		grad: mat.NewDense(n, n, nil),
		cand: mat.NewDense(n, n, nil),
		sym:  mat.NewSymDense(n, nil),
	}
}

// Fit runs the optimization process from the initial guess x using workspace w.
// The initial x must be symmetric positive-definite and is not modified.
//
// On a numeric failure (singular iterate, exhausted line search) the error is
// propagated unchanged and the returned result holds the trajectory of the
// iterations completed before the failure.
func (o *Optimizer) Fit(x *mat.Dense, w *Workspace) (*Result, error) {

	if r, c := x.Dims(); r != o.n || c != o.n {
		panic("initial x dimension not match problem")
	}
	if w.n != o.n {
		panic("workspace dimension not match problem")
	}

	w.numEval = 0
	w.step = o.lr

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		x:         mat.DenseCopyOf(x),
		loss:      make([]float64, 0, o.iters),
		times:     make([]float64, 0, o.iters),
	}

	status, err := driver.mainLoop()
	return &Result{
		X:       driver.x,
		Loss:    driver.loss,
		Elapsed: driver.times,
		Summary: Summary{
			Status:  status,
			NumIter: len(driver.loss),
			NumEval: w.numEval,
		},
	}, err
}
