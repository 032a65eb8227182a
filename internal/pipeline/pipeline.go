package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	"github.com/couchcryptid/profile-gridding-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a gridded profile.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.GriddedProfile, error)
}

// BatchLoader writes multiple gridded profiles to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, profiles []domain.GriddedProfile) error
}

// Pipeline orchestrates the extract-grid-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	concurrency int
}

// New creates a Pipeline with the given stages and observability. Up to
// concurrency profiles of a batch are gridded at once.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize, concurrency int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		concurrency: max(concurrency, 1),
	}
}

// CheckReadiness returns nil if the pipeline has loaded at least one profile,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not gridded any profiles yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "concurrency", p.concurrency)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-grid-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.gridAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// gridAndLoad grids the batch, loads the successes, and commits offsets.
// Messages that cannot be gridded are logged, counted, and committed so a
// poison message never blocks the partition. Returns the number of loaded
// profiles and false if the pipeline should stop.
func (p *Pipeline) gridAndLoad(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	results, err := GridProfiles(ctx, rawBatch, p.transformer, p.concurrency)
	if err != nil {
		return 0, false
	}

	outBatch := make([]domain.GriddedProfile, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for i, res := range results {
		raw := rawBatch[i]
		if res.Err != nil {
			p.logger.Warn("gridding failed, skipping message",
				"error", res.Err,
				"reason", ErrorReason(res.Err),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.GridErrors.WithLabelValues(ErrorReason(res.Err)).Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		p.metrics.BinsPerProfile.Observe(float64(len(res.Profile.Rows)))
		outBatch = append(outBatch, res.Profile)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ProfilesGridded.Add(float64(len(outBatch)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
