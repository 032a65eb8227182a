package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	"github.com/couchcryptid/profile-gridding-service/internal/observability"
)

// Sink is a named BatchLoader.
type Sink struct {
	Name   string
	Loader BatchLoader
}

// MultiLoader writes each batch to every sink in order and stops at the first
// failure. Sinks must tolerate replays: a batch that fails on a later sink is
// retried from the first one.
type MultiLoader struct {
	sinks   []Sink
	metrics *observability.Metrics
}

// NewMultiLoader fans batches out to sinks.
func NewMultiLoader(metrics *observability.Metrics, sinks ...Sink) *MultiLoader {
	return &MultiLoader{sinks: sinks, metrics: metrics}
}

// LoadBatch implements BatchLoader.
func (m *MultiLoader) LoadBatch(ctx context.Context, profiles []domain.GriddedProfile) error {
	for _, s := range m.sinks {
		if err := s.Loader.LoadBatch(ctx, profiles); err != nil {
			m.metrics.SinkWrites.WithLabelValues(s.Name, "error").Inc()
			return fmt.Errorf("load into %s: %w", s.Name, err)
		}
		m.metrics.SinkWrites.WithLabelValues(s.Name, "success").Inc()
	}
	return nil
}
