// Command validate checks a raw sounding fixture and its gridded fixture for
// internal consistency: every raw profile parses with a valid start time,
// regridding reproduces the gridded fixture, each row satisfies the
// uncertainty combination identities, and a temporal grid of any single
// profile reproduces that profile.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw data/mock/soundings_generated.json \
//	  -gridded data/mock/gridded_generated.json \
//	  -bin-width 100
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
)

const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawPath := flag.String("raw", "", "path to raw profile JSON fixture")
	griddedPath := flag.String("gridded", "", "path to gridded profile JSON fixture")
	binWidth := flag.Float64("bin-width", 100, "bin width the gridded fixture was built with")
	coordinate := flag.String("coordinate", "alt", "coordinate the gridded fixture was built on")
	flag.Parse()

	if *rawPath == "" || *griddedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawPath, *griddedPath, *coordinate, *binWidth); code != 0 {
		os.Exit(code)
	}
}

func run(rawPath, griddedPath, coordinate string, binWidth float64) int {
	fmt.Println("=== Gridded Profile Integrity Validation ===")
	fmt.Println()

	raws, err := loadJSON[domain.Profile](rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw JSON: %v\n", err)
		return 1
	}
	gridded, err := loadJSON[domain.GriddedProfile](griddedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load gridded JSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRaw(raws),
		validateRegrid(raws, gridded, coordinate, binWidth),
		validateIdentities(gridded),
		validateTemporalIdempotence(gridded),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Profiles: %d raw, %d gridded\n", len(raws), len(gridded))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func validateRaw(raws []domain.Profile) *phase {
	p := &phase{name: "Raw profiles parse"}
	seen := map[string]bool{}
	for i, prof := range raws {
		if _, err := prof.StartTime(); err != nil {
			p.errorf("profile %d: %v", i, err)
		}
		if len(prof.Samples) == 0 {
			p.errorf("profile %d: no samples", i)
		}
		if seen[prof.ID()] {
			p.errorf("profile %d: duplicate ID %s", i, prof.ID())
		}
		seen[prof.ID()] = true
	}
	return p
}

func validateRegrid(raws []domain.Profile, gridded []domain.GriddedProfile, coordinate string, binWidth float64) *phase {
	p := &phase{name: "Regridding reproduces fixture"}
	if len(raws) != len(gridded) {
		p.errorf("count mismatch: %d raw vs %d gridded", len(raws), len(gridded))
		return p
	}
	for i, prof := range raws {
		want := gridded[i]
		got, err := domain.BuildSpatialGrid(prof, coordinate, want.Variables, domain.FixedWidth{Width: binWidth})
		if err != nil {
			p.errorf("profile %d: %v", i, err)
			continue
		}
		if got.ID != want.ID {
			p.errorf("profile %d: ID %s, fixture has %s", i, got.ID, want.ID)
		}
		if len(got.Rows) != len(want.Rows) {
			p.errorf("profile %s: %d rows, fixture has %d", got.ID, len(got.Rows), len(want.Rows))
			continue
		}
		for j := range got.Rows {
			g, w := got.Rows[j], want.Rows[j]
			if g.Key != w.Key || g.Count != w.Count {
				p.errorf("profile %s row %d: key/count %v/%d, fixture %v/%d", got.ID, j, g.Key, g.Count, w.Key, w.Count)
			}
			for _, v := range want.Variables {
				if !approxEqual(g.Vars[v].Mean, w.Vars[v].Mean) || !approxEqual(g.Vars[v].U, w.Vars[v].U) {
					p.errorf("profile %s row %d %s: mean/u %g/%g, fixture %g/%g",
						got.ID, j, v, g.Vars[v].Mean, g.Vars[v].U, w.Vars[v].Mean, w.Vars[v].U)
				}
			}
		}
	}
	return p
}

func validateIdentities(gridded []domain.GriddedProfile) *phase {
	p := &phase{name: "Uncertainty identities hold"}
	for _, g := range gridded {
		for j, row := range g.Rows {
			for v, e := range row.Vars {
				if !approxEqual(e.UUc*e.UUc, e.UUcor*e.UUcor+e.SampleStd*e.SampleStd) {
					p.errorf("profile %s row %d %s: u_uc² != u_ucor² + std²", g.ID, j, v)
				}
				if !approxEqual(e.U*e.U, e.UUc*e.UUc+e.UScor*e.UScor+e.UTcor*e.UTcor) {
					p.errorf("profile %s row %d %s: u² != u_uc² + u_scor² + u_tcor²", g.ID, j, v)
				}
				if e.N != row.Count {
					p.errorf("profile %s row %d %s: n %d, row count %d", g.ID, j, v, e.N, row.Count)
				}
				if e.N == 1 && e.SampleStd != 0 {
					p.errorf("profile %s row %d %s: single-sample std %g", g.ID, j, v, e.SampleStd)
				}
			}
		}
	}
	return p
}

func validateTemporalIdempotence(gridded []domain.GriddedProfile) *phase {
	p := &phase{name: "Temporal grid of one is identity"}
	for _, g := range gridded {
		tg, err := domain.BuildTemporalGrid([]domain.GriddedProfile{g}, g.Variables, 1, g.KeyKind)
		if err != nil {
			p.errorf("profile %s: %v", g.ID, err)
			continue
		}
		if len(tg.Rows) != len(g.Rows) {
			p.errorf("profile %s: %d temporal rows, %d spatial", g.ID, len(tg.Rows), len(g.Rows))
			continue
		}
		for j := range g.Rows {
			for _, v := range g.Variables {
				s, t := g.Rows[j].Vars[v], tg.Rows[j].Vars[v]
				if !approxEqual(s.Mean, t.Mean) || !approxEqual(s.U, t.U) || !approxEqual(s.UUc, t.UUc) {
					p.errorf("profile %s row %d %s: temporal mean/u %g/%g, spatial %g/%g", g.ID, j, v, t.Mean, t.U, s.Mean, s.U)
				}
			}
		}
	}
	return p
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
