package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Correlation is the declared correlation class of an uncertainty component
// within one aggregation stage.
type Correlation int

const (
	// Uncorrelated components shrink when averaged: sqrt(Σu²)/n.
	Uncorrelated Correlation = iota
	// Correlated components do not shrink; their point estimate is the mean.
	Correlated
)

func (c Correlation) String() string {
	if c == Correlated {
		return "correlated"
	}
	return "uncorrelated"
}

// StageRules assigns a correlation class to each uncertainty component for
// one aggregation stage.
type StageRules struct {
	Ucor Correlation
	Scor Correlation
	Tcor Correlation
}

// SpatialRules apply when samples of one profile are binned (TN-13 eqs
// 3.6, 3.9, 3.10).
var SpatialRules = StageRules{Ucor: Uncorrelated, Scor: Correlated, Tcor: Correlated}

// TemporalRules apply when gridded rows of many profiles are combined. The
// uncorrelated input is each row's u_uc; the spatial term is re-averaged and
// the temporal term stays correlated across profiles.
var TemporalRules = StageRules{Ucor: Uncorrelated, Scor: Correlated, Tcor: Correlated}

// Aggregate holds the per-bin raw inputs of the uncertainty combination.
type Aggregate struct {
	Mean      float64
	N         int
	RawUcor   float64
	RawScor   float64
	RawTcor   float64
	SampleStd float64
}

// AggregateBin reduces the measurements of one bin. ms must not be empty.
func AggregateBin(ms []Measurement, rules StageRules) (Aggregate, error) {
	n := len(ms)
	if n == 0 {
		return Aggregate{}, fmt.Errorf("%w: aggregate of zero samples", ErrEmptyInput)
	}

	values := make([]float64, n)
	ucor := make([]float64, n)
	scor := make([]float64, n)
	tcor := make([]float64, n)
	for i, m := range ms {
		values[i] = m.Value
		ucor[i] = m.UUcor
		scor[i] = m.UScor
		tcor[i] = m.UTcor
	}

	return Aggregate{
		Mean:      stat.Mean(values, nil),
		N:         n,
		RawUcor:   reduce(ucor, rules.Ucor),
		RawScor:   reduce(scor, rules.Scor),
		RawTcor:   reduce(tcor, rules.Tcor),
		SampleStd: standardError(values),
	}, nil
}

// reduce collapses one component according to its correlation class.
func reduce(u []float64, c Correlation) float64 {
	if c == Correlated {
		return stat.Mean(u, nil)
	}
	return math.Sqrt(floats.Dot(u, u)) / float64(len(u))
}

// standardError is sqrt(Σ(x-mean)² / (n(n-1))), and zero for a single value.
func standardError(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(x, nil)
	return stat.StdErr(std, float64(len(x)))
}
