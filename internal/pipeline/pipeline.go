package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/couchcryptid/precip-trend/internal/observability"
)

// Renderer draws a trend map as an image.
type Renderer interface {
	Render(w io.Writer, m domain.TrendMap) error
}

// Publisher sends a run summary downstream.
type Publisher interface {
	Publish(ctx context.Context, s domain.Summary) error
}

// Options selects what a run analyses.
type Options struct {
	Source   string // dataset path passed to the loader
	Variable string // precipitation variable name, recorded in the summary
	Params   domain.Params
}

// Result is the outcome of a successful run.
type Result struct {
	Summary domain.Summary
	Map     domain.TrendMap
	Figure  []byte // PNG
}

// Pipeline runs the load, subset, trend, aggregate and render stages once
// per call to Run.
type Pipeline struct {
	loader    domain.Loader
	renderer  Renderer
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool

	mu   sync.RWMutex
	last Result
}

// New creates a Pipeline. A nil publisher disables publication.
func New(l domain.Loader, r Renderer, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		loader:    l,
		renderer:  r,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastResult returns the result of the most recent successful run.
func (p *Pipeline) LastResult() (Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.ready.Load()
}

// LatestFigure returns the PNG of the most recent successful run.
func (p *Pipeline) LatestFigure() ([]byte, bool) {
	res, ok := p.LastResult()
	return res.Figure, ok
}

// LatestSummary returns the summary of the most recent successful run.
func (p *Pipeline) LatestSummary() (domain.Summary, bool) {
	res, ok := p.LastResult()
	return res.Summary, ok
}

// Run executes every stage in order. The dataset is closed before Run
// returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	params := p.opts.Params
	p.logger.Info("pipeline started",
		"source", p.opts.Source,
		"bbox", params.Box,
		"start", params.Dates.Start.Format(time.DateOnly),
		"end", params.Dates.End.Format(time.DateOnly),
	)
	defer func() {
		p.metrics.Runs.WithLabelValues(outcome(err)).Inc()
		if err != nil {
			p.logger.Error("pipeline failed", "error", err, "duration", time.Since(start))
		}
	}()

	var ds domain.Dataset
	if err := p.stage("open", func() (err error) {
		ds, err = p.loader.Open(ctx, p.opts.Source)
		return err
	}); err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			p.logger.Warn("close dataset failed", "error", cerr)
		}
	}()

	var axes domain.Axes
	if err := p.stage("axes", func() (err error) {
		axes, err = ds.Axes(ctx)
		return err
	}); err != nil {
		return Result{}, err
	}

	var (
		sel   domain.Selection
		times []time.Time
	)
	if err := p.stage("subset", func() (err error) {
		if sel.Lon, sel.Lat, err = domain.SelectBox(axes.Lon, axes.Lat, params.Box); err != nil {
			return err
		}
		if times, err = domain.DecodeTimes(axes.Time, axes.TimeUnits, axes.Calendar); err != nil {
			return err
		}
		sel.Time, err = domain.SelectDates(times, params.Dates)
		return err
	}); err != nil {
		return Result{}, err
	}
	span := sel.Time
	slab := sel.Slab()
	p.logger.Info("selection resolved",
		"lon_cells", len(sel.Lon),
		"lat_cells", len(sel.Lat),
		"start_index", span.Start,
		"end_index", span.End,
		"samples", span.Len(),
	)

	var cube domain.Cube
	if err := p.stage("read", func() (err error) {
		block, err := ds.ReadPrecip(ctx, slab)
		if err != nil {
			return err
		}
		if block.NT != slab.Time.Len() || block.NLat != slab.Lat.Len() || block.NLon != slab.Lon.Len() {
			return fmt.Errorf("%w: read %d×%d×%d, want %d×%d×%d", domain.ErrDataUnavailable,
				block.NT, block.NLat, block.NLon, slab.Time.Len(), slab.Lat.Len(), slab.Lon.Len())
		}
		cube = block.Subset(sel.Local())
		return nil
	}); err != nil {
		return Result{}, err
	}

	var (
		trend  domain.Field
		masked int
	)
	if err := p.stage("trend", func() error {
		trend, masked = domain.MaskBelow(domain.EstimateTrend(cube), params.OutlierThreshold)
		return nil
	}); err != nil {
		return Result{}, err
	}

	var avg float64
	if err := p.stage("aggregate", func() (err error) {
		weights := domain.LatitudeWeights(domain.Pick(axes.Lat, sel.Lat), len(sel.Lon))
		avg, err = domain.WeightedMean(trend, weights)
		if errors.Is(err, domain.ErrNoDefinedCells) {
			p.logger.Warn("average trend undefined", "cells", len(trend.Values), "masked", masked)
			return nil
		}
		return err
	}); err != nil {
		return Result{}, err
	}

	m := domain.TrendMap{
		Lon:    domain.Pick(axes.Lon, sel.Lon),
		Lat:    domain.Pick(axes.Lat, sel.Lat),
		Trend:  trend,
		Params: params,
	}
	var figure bytes.Buffer
	if err := p.stage("render", func() error {
		return p.renderer.Render(&figure, m)
	}); err != nil {
		return Result{}, err
	}

	resolved := domain.DateRange{Start: times[span.Start], End: times[span.End]}
	summary := domain.NewSummary(p.opts.Source, p.opts.Variable, params, resolved, span.Len(), trend, masked, avg)
	p.publish(ctx, summary)

	p.metrics.TimeSamples.Set(float64(span.Len()))
	p.metrics.Cells.Set(float64(summary.Cells))
	p.metrics.UndefinedCell.Set(float64(summary.UndefinedCells))
	p.metrics.AverageTrend.Set(avg)

	res = Result{Summary: summary, Map: m, Figure: figure.Bytes()}
	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
	p.ready.Store(true)

	p.logger.Info("pipeline finished",
		"average_trend", avg,
		"cells", summary.Cells,
		"undefined_cells", summary.UndefinedCells,
		"duration", time.Since(start),
	)
	return res, nil
}

// stage times fn and wraps its error with the stage name.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("stage complete", "stage", name, "duration", d)
	return nil
}

// publish sends the summary if a publisher is configured. Failures are
// logged and counted but do not fail the run.
func (p *Pipeline) publish(ctx context.Context, s domain.Summary) {
	if p.publisher == nil {
		return
	}
	err := p.stage("publish", func() error {
		return p.publisher.Publish(ctx, s)
	})
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Warn("publish summary failed", "error", err, "id", s.ID)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, domain.ErrEmptySelection):
		return "empty_selection"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
