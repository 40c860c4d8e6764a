// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descent

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestProblemValidation(t *testing.T) {

	valid := Problem{Target: identity(3), Iters: 10, LearnRate: 1}

	for name, mutate := range map[string]func(p *Problem){
		"nil target":        func(p *Problem) { p.Target = nil },
		"non-square target": func(p *Problem) { p.Target = mat.NewDense(2, 3, nil) },
		"zero iterations":   func(p *Problem) { p.Iters = 0 },
		"zero learn rate":   func(p *Problem) { p.LearnRate = 0 },
		"nan learn rate":    func(p *Problem) { p.LearnRate = math.NaN() },
	} {
		p := valid
		mutate(&p)
		_, err := p.New(nil)
		require.Error(t, err, name)
	}

	o, err := valid.New(nil)
	require.NoError(t, err)
	require.NotNil(t, o)
}

func TestFitDimensionMismatch(t *testing.T) {
	p := &Problem{Target: identity(3), Iters: 1, LearnRate: 1}
	o, err := p.New(nil)
	require.NoError(t, err)
	require.Panics(t, func() { o.Fit(identity(2), o.Init()) })
}

// With 𝐀 = 𝐗₀ = 𝐈 the masked gradient vanishes, so the iterate never moves
// and every recorded loss equals n.
func TestIdentityFixedStep(t *testing.T) {

	p := &Problem{Target: identity(4), Iters: 5, LearnRate: 1}
	o, err := p.New(nil)
	require.NoError(t, err)

	res, err := o.Fit(identity(4), o.Init())
	require.NoError(t, err)
	require.Equal(t, FitOK, res.Status)
	require.Equal(t, 5, res.NumIter)
	require.Len(t, res.Loss, 5)
	require.Len(t, res.Elapsed, 5)

	require.Zero(t, res.Elapsed[0])
	for k := 0; k < 5; k++ {
		require.InDelta(t, 4.0, res.Loss[k], 1e-14, "iteration %d", k)
		require.GreaterOrEqual(t, res.Elapsed[k], 0.0)
	}
	require.True(t, mat.EqualApprox(res.X, identity(4), 1e-12))
}

func TestFixedStepDeterminism(t *testing.T) {

	p := &Problem{Target: testTarget(), Iters: 10, LearnRate: 0.01}
	o, err := p.New(nil)
	require.NoError(t, err)

	w := o.Init()
	first, err := o.Fit(identity(3), w)
	require.NoError(t, err)
	second, err := o.Fit(identity(3), w) // workspace reuse
	require.NoError(t, err)

	require.Equal(t, first.Loss, second.Loss)
	require.True(t, mat.Equal(first.X, second.X))
}

func TestArmijoRunKeepsIterateOnManifold(t *testing.T) {

	p := &Problem{Target: testTarget(), Iters: 15, LearnRate: 1, Armijo: true}
	o, err := p.New(nil)
	require.NoError(t, err)
	w := o.Init()

	res, err := o.Fit(identity(3), w)
	require.NoError(t, err)
	require.Equal(t, FitOK, res.Status)
	require.Equal(t, 15, res.NumIter)
	require.GreaterOrEqual(t, res.NumEval, 2*res.NumIter)

	for k, f := range res.Loss {
		require.False(t, math.IsNaN(f) || math.IsInf(f, 0), "iteration %d", k)
	}

	asym := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			asym = math.Max(asym, math.Abs(res.X.At(i, j)-res.X.At(j, i)))
		}
	}
	require.Less(t, asym, 1e-10)
	require.True(t, posDefinite(res.X, w))
}

func TestLoggerOutput(t *testing.T) {

	var buf bytes.Buffer
	p := &Problem{Target: identity(2), Iters: 2, LearnRate: 1}
	o, err := p.New(&Logger{Level: LogEval, Msg: &buf})
	require.NoError(t, err)

	_, err = o.Fit(identity(2), o.Init())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "At iterate")
	require.Contains(t, buf.String(), "Done 2 iterations")
}
