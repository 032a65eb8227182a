// Package domain resamples atmospheric soundings onto regular grids and
// propagates their measurement uncertainty, following the GRUAN TN-13 user
// guide for the RS41 GRUAN Data Product (GDP).
//
// # Data Source
//
// Profiles arrive as decoded GDP records: one Sample per radiosonde reading,
// with vertical coordinates ("alt" in m, "press" in hPa) and per variable a
// value plus three uncertainty components. File ingestion happens upstream;
// this package only sees clean numeric columns.
//
// # Uncertainty Components
//
//	u_ucor  uncorrelated: independent sample to sample, shrinks on averaging
//	u_scor  spatially correlated: constant-offset-like within one profile
//	u_tcor  temporally correlated: constant-offset-like across profiles
//
// A missing u_scor or u_tcor decodes as zero. That contributes nothing to u,
// so an instrument that has such errors but does not report them will get an
// under-stated combined uncertainty.
//
// # Spatial Gridding
//
// Samples are binned along one coordinate, either into fixed-width intervals
// [k*w, (k+1)*w) represented by their midpoint, or onto the nearest
// mandatory level represented by the mean coordinate of its members. Per bin
// of n samples x_i with components u_i:
//
//	mean   = Σx_i / n                                  (3.5)
//	u_ucor = sqrt(Σu_ucor_i²) / n                      (3.6)
//	std    = sqrt(Σ(x_i-mean)² / (n(n-1))), 0 if n=1   (3.7)
//	u_uc   = sqrt(u_ucor² + std²)                      (3.8)
//	u_scor = Σu_scor_i / n                             (3.9)
//	u_tcor = Σu_tcor_i / n                             (3.10)
//	u      = sqrt(u_uc² + u_scor² + u_tcor²)           (3.11)
//
// Fixed-width edges always extend one full bin above the bin holding the
// largest coordinate. Empty bins are dropped rather than emitted as NaN rows.
//
// # Temporal Gridding
//
// Gridded profiles are grouped by (time bin, vertical key). Time bins use the
// fixed-width rule on elapsed days since the earliest start time. Within a
// group the same reduction runs again with each row's u_uc as the
// uncorrelated input, so the scatter of the row means between profiles is
// folded into the new u_uc. Mixing fixed-width and mandatory-level keys is an
// error.
//
// # Start Time
//
// The start time is read from the g.Measurement.StartTime attribute and must
// be formatted exactly as 2006-01-02T15:04:05.000000Z.
//
// # Purity
//
// Every builder is a pure function of its inputs: no caching, no shared
// state, no I/O. Independent profiles can be gridded concurrently.
package domain
