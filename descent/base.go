// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descent

const (
	zero = 0.0
	one  = 1.0
	half = 0.5
)

const (
	// searchDecrease sufficient-decrease factor of the Armijo condition.
	searchDecrease = 0.25
	// searchContract step-size multiplier applied on every rejected step.
	searchContract = 0.1
	// searchMaxSteps default bound on contractions per iteration.
	// After 60 contractions any double-precision step has underflowed into
	// the denormal range, so further retries cannot change the candidate.
	searchMaxSteps = 60
)

type fitStatus int

const (
	// FitOK run completed all requested iterations.
	FitOK fitStatus = iota
	// FitSingularX iterate became singular inside the loss evaluation.
	FitSingularX
	// FitNoDescentStep line search exhausted MaxBacktracks without an acceptable step.
	FitNoDescentStep
)
