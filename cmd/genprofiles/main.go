// Command genprofiles generates synthetic radiosonde soundings and writes
// them as raw profile fixtures. It grids the same soundings with the domain
// package so the gridded fixture matches real pipeline output, and can
// publish the raw soundings to the source topic.
//
// Usage:
//
//	go run ./cmd/genprofiles \
//	  -site LIN -start 2024-03-01 -days 7 -per-day 2 \
//	  -raw-out data/mock/soundings_generated.json \
//	  -gridded-out data/mock/gridded_generated.json \
//	  -publish
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	kafkaadapter "github.com/couchcryptid/profile-gridding-service/internal/adapter/kafka"
	"github.com/couchcryptid/profile-gridding-service/internal/config"
	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Standard atmosphere near the surface.
const (
	surfacePressure = 1013.25 // hPa
	scaleHeight     = 8434.0  // m
	lapseRate       = 0.0065  // K/m
	tropopause      = 11000.0 // m
	ascentRate      = 5.0     // m/s
	sampleInterval  = 2 * time.Second
)

type options struct {
	site       string
	start      time.Time
	days       int
	perDay     int
	topAlt     float64
	seed       uint64
	binWidth   float64
	rawOut     string
	griddedOut string
	publish    bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	site := flag.String("site", "LIN", "site code written to g.Site.Code")
	start := flag.String("start", "2024-03-01", "first launch date (YYYY-MM-DD)")
	days := flag.Int("days", 3, "number of launch days")
	perDay := flag.Int("per-day", 2, "launches per day, evenly spaced from 11:00 UTC")
	topAlt := flag.Float64("top", 30000, "burst altitude in m")
	seed := flag.Uint64("seed", 1, "random seed")
	binWidth := flag.Float64("bin-width", 100, "bin width in m for the gridded fixture")
	rawOut := flag.String("raw-out", "", "output path for raw profile JSON fixture")
	griddedOut := flag.String("gridded-out", "", "output path for gridded profile JSON fixture (optional)")
	publishFlag := flag.Bool("publish", false, "publish raw profiles to KAFKA_SOURCE_TOPIC")
	flag.Parse()

	if *rawOut == "" && !*publishFlag {
		flag.Usage()
		return fmt.Errorf("nothing to do: set -raw-out or -publish")
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *days < 1 || *perDay < 1 || *topAlt <= 0 {
		return fmt.Errorf("-days, -per-day and -top must be positive")
	}

	opts := options{
		site: *site, start: startDate, days: *days, perDay: *perDay, topAlt: *topAlt,
		seed: *seed, binWidth: *binWidth, rawOut: *rawOut, griddedOut: *griddedOut, publish: *publishFlag,
	}

	profiles := generate(opts)
	log.Printf("generated %d soundings for %s", len(profiles), opts.site)

	if opts.rawOut != "" {
		if err := writeJSON(opts.rawOut, profiles); err != nil {
			return fmt.Errorf("writing raw fixture: %w", err)
		}
		log.Printf("wrote raw fixture: %s", opts.rawOut)
	}

	if opts.griddedOut != "" {
		gridded, err := gridAll(profiles, opts.binWidth)
		if err != nil {
			return err
		}
		if err := writeJSON(opts.griddedOut, gridded); err != nil {
			return fmt.Errorf("writing gridded fixture: %w", err)
		}
		log.Printf("wrote gridded fixture: %s", opts.griddedOut)
		printStats(gridded)
	}

	if opts.publish {
		return publish(profiles)
	}
	return nil
}

// generate builds soundings from a standard atmosphere with per-launch
// temperature offsets and per-sample noise.
func generate(opts options) []domain.Profile {
	rng := rand.New(rand.NewPCG(opts.seed, uint64(len(opts.site))))
	spacing := 24 * time.Hour / time.Duration(opts.perDay)

	var profiles []domain.Profile //nolint:prealloc // launches depend on flags
	for d := 0; d < opts.days; d++ {
		for l := 0; l < opts.perDay; l++ {
			launch := opts.start.Add(time.Duration(d)*24*time.Hour + 11*time.Hour + time.Duration(l)*spacing)
			offset := rng.NormFloat64() * 1.5
			profiles = append(profiles, sounding(rng, opts, launch, offset))
		}
	}
	return profiles
}

func sounding(rng *rand.Rand, opts options, launch time.Time, offset float64) domain.Profile {
	n := int(opts.topAlt/(ascentRate*sampleInterval.Seconds())) + 1
	samples := make([]domain.Sample, 0, n)
	for i := 0; i < n; i++ {
		elapsed := time.Duration(i) * sampleInterval
		alt := ascentRate * elapsed.Seconds() * (1 + 0.05*rng.NormFloat64())
		alt = math.Max(alt, 0)

		temp := 288.15 - lapseRate*math.Min(alt, tropopause) + offset + 0.2*rng.NormFloat64()
		rh := math.Max(1, 80*math.Exp(-alt/4000)+2*rng.NormFloat64())

		samples = append(samples, domain.Sample{
			Coords: map[string]float64{
				"alt":   round(alt, 2),
				"press": round(surfacePressure*math.Exp(-alt/scaleHeight), 3),
			},
			Time: launch.Add(elapsed),
			Vars: map[string]domain.Measurement{
				"temp": {Value: round(temp, 3), UUcor: 0.15, UScor: 0.1, UTcor: 0.05},
				"rh":   {Value: round(rh, 2), UUcor: 1.5, UScor: 1.0},
			},
		})
	}
	return domain.Profile{
		Metadata: map[string]string{
			domain.SiteAttr:      opts.site,
			domain.StartTimeAttr: domain.FormatStartTime(launch),
			"g.Product.Code":     "synthetic",
		},
		Samples: samples,
	}
}

func gridAll(profiles []domain.Profile, width float64) ([]domain.GriddedProfile, error) {
	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	out := make([]domain.GriddedProfile, 0, len(profiles))
	for _, p := range profiles {
		g, err := domain.BuildSpatialGrid(p, "alt", []string{"temp", "rh"}, domain.FixedWidth{Width: width})
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", p.ID(), err)
		}
		out = append(out, domain.MarkProcessed(g))
	}
	return out, nil
}

func publish(profiles []domain.Profile) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pub := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSourceTopic)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, profiles); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	log.Printf("published %d soundings to %s", len(profiles), cfg.KafkaSourceTopic)
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(gridded []domain.GriddedProfile) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Profiles: %d\n", len(gridded))
	var rows, singles int
	var maxU float64
	for _, g := range gridded {
		rows += len(g.Rows)
		for _, r := range g.Rows {
			if r.Count == 1 {
				singles++
			}
			maxU = math.Max(maxU, r.Vars["temp"].U)
		}
	}
	fmt.Printf("Rows: %d (%d single-sample)\n", rows, singles)
	fmt.Printf("Max temp u: %.4f K\n", maxU)
	if len(gridded) > 0 && len(gridded[0].Rows) > 0 {
		r := gridded[0].Rows[0]
		fmt.Printf("First row: coord=%g n=%d temp=%.3f u=%.4f\n", r.Coordinate, r.Count, r.Vars["temp"].Mean, r.Vars["temp"].U)
	}
}
