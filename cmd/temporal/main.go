// Command temporal builds a temporal grid from gridded profiles held in the
// SQLite store and writes it as JSON.
//
// Usage:
//
//	go run ./cmd/temporal \
//	  -store data/gridded.db \
//	  -site LIN -from 2024-03-01 -to 2024-04-01 \
//	  -variables temp,rh -days 1 -key bin \
//	  -out data/temporal_lin_202403.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/profile-gridding-service/internal/adapter/sqlite"
	"github.com/couchcryptid/profile-gridding-service/internal/domain"
)

const dateLayout = "2006-01-02"

type options struct {
	storePath  string
	site       string
	coordinate string
	from, to   time.Time
	variables  []string
	widthDays  float64
	key        domain.KeyKind
	out        string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := run(context.Background(), opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("temporal", flag.ContinueOnError)
	storePath := fs.String("store", "data/gridded.db", "SQLite store of gridded profiles")
	site := fs.String("site", "", "site code to select (empty selects all)")
	coordinate := fs.String("coordinate", "", "vertical coordinate the profiles were gridded on (empty selects all)")
	from := fs.String("from", "", "first start date, inclusive (YYYY-MM-DD)")
	to := fs.String("to", "", "last start date, exclusive (YYYY-MM-DD)")
	variables := fs.String("variables", "temp", "comma-separated variables to aggregate")
	days := fs.Float64("days", 1, "time bin width in days")
	key := fs.String("key", string(domain.KeyBin), "vertical key kind: bin or level")
	out := fs.String("out", "", "output JSON path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		storePath:  *storePath,
		site:       *site,
		coordinate: *coordinate,
		widthDays:  *days,
		key:        domain.KeyKind(*key),
		out:        *out,
	}
	for _, v := range strings.Split(*variables, ",") {
		if v = strings.TrimSpace(v); v != "" {
			opts.variables = append(opts.variables, v)
		}
	}

	var err error
	if opts.from, err = parseDate(*from); err != nil {
		return options{}, fmt.Errorf("invalid -from: %w", err)
	}
	if opts.to, err = parseDate(*to); err != nil {
		return options{}, fmt.Errorf("invalid -to: %w", err)
	}
	if !opts.from.IsZero() && !opts.to.IsZero() && !opts.from.Before(opts.to) {
		return options{}, errors.New("-from must be before -to")
	}
	return opts, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func run(ctx context.Context, opts options) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(opts.storePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	profiles, err := store.List(ctx, sqlite.Query{
		Site:       opts.site,
		Coordinate: opts.coordinate,
		From:       opts.from,
		To:         opts.to,
	})
	if err != nil {
		return err
	}
	log.Printf("loaded %d gridded profiles", len(profiles))

	grid, err := domain.BuildTemporalGrid(profiles, opts.variables, opts.widthDays, opts.key)
	if err != nil {
		return fmt.Errorf("temporal gridding: %w", err)
	}
	log.Printf("temporal grid: %d rows, origin %s", len(grid.Rows), domain.FormatStartTime(grid.Origin))

	return writeGrid(opts.out, grid)
}

func writeGrid(path string, grid domain.TemporalGrid) error {
	data, err := json.MarshalIndent(grid, "", "  ")
	if err != nil {
		return fmt.Errorf("encode temporal grid: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	log.Printf("wrote temporal grid: %s", path)
	return nil
}
