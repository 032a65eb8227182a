package domain

import "math"

// CombineUncertainty applies the TN-13 combination law to one bin's raw
// inputs. The uncorrelated instrument term and the between-sample scatter
// add in quadrature to uUc (eq. 3.8); uUc and the two correlated terms add in
// quadrature to u (eq. 3.11). The same law is reused at the temporal stage.
func CombineUncertainty(rawUcor, sampleStd, rawScor, rawTcor float64) (uUc, u float64) {
	uUc = math.Sqrt(rawUcor*rawUcor + sampleStd*sampleStd)
	u = math.Sqrt(uUc*uUc + rawScor*rawScor + rawTcor*rawTcor)
	return uUc, u
}

// Estimate is the gridded value of one variable in one bin. The three
// components stay separate so a later stage can recombine them.
type Estimate struct {
	Mean      float64 `json:"mean"`
	N         int     `json:"n"`
	UUcor     float64 `json:"u_ucor"`
	SampleStd float64 `json:"std"`
	UUc       float64 `json:"u_uc"`
	UScor     float64 `json:"u_scor"`
	UTcor     float64 `json:"u_tcor"`
	U         float64 `json:"u"`
}

func newEstimate(a Aggregate) Estimate {
	uUc, u := CombineUncertainty(a.RawUcor, a.SampleStd, a.RawScor, a.RawTcor)
	return Estimate{
		Mean:      a.Mean,
		N:         a.N,
		UUcor:     a.RawUcor,
		SampleStd: a.SampleStd,
		UUc:       uUc,
		UScor:     a.RawScor,
		UTcor:     a.RawTcor,
		U:         u,
	}
}

// carry turns an estimate into the input of the next aggregation stage: the
// combined uncorrelated term u_uc becomes the new uncorrelated component.
func (e Estimate) carry() Measurement {
	return Measurement{
		Value: e.Mean,
		UUcor: e.UUc,
		UScor: e.UScor,
		UTcor: e.UTcor,
	}
}
