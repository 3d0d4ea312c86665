package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/anc/internal/domain/pregnancy"
	"github.com/ehr/anc/internal/domain/triage"
	"github.com/ehr/anc/internal/platform/cache"
)

// SummaryTTL is the default bound on how stale the cached dashboard
// summary may be.
const SummaryTTL = 30 * time.Second

const summaryKey = "monitoring:summary"

// Source lists the records monitoring aggregates over.
type Source interface {
	ListAll(ctx context.Context) ([]*pregnancy.Patient, error)
}

type VisitSource interface {
	ListAll(ctx context.Context) ([]*pregnancy.Visit, error)
}

type Service struct {
	patients   Source
	visits     VisitSource
	classifier *triage.Classifier
	kv         cache.KV
	ttl        time.Duration
	clinic     string
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithClassifier(c *triage.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithCache caches the dashboard summary in kv.
func WithCache(kv cache.KV) Option {
	return func(s *Service) { s.kv = kv }
}

// WithSummaryTTL overrides SummaryTTL. Non-positive values are ignored.
func WithSummaryTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClinic sets the clinic name printed on reports.
func WithClinic(name string) Option {
	return func(s *Service) { s.clinic = name }
}

func NewService(patients Source, visits VisitSource, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		patients:   patients,
		visits:     visits,
		classifier: triage.NewClassifier(nil),
		logger:     logger.With().Str("component", "monitoring").Logger(),
		ttl:        SummaryTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Rows(ctx context.Context, f Filter) ([]Row, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	visits, err := s.visits.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return BuildRows(s.classifier, patients, visits, f, s.now()), nil
}

func (s *Service) Stats(ctx context.Context, f Filter) (Stats, error) {
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return Stats{}, err
	}
	return BuildStats(rows), nil
}

func (s *Service) Markers(ctx context.Context, f Filter) ([]Marker, error) {
	f.IncludeDelivered = false
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return nil, err
	}
	return MapMarkers(rows), nil
}

// Summary returns the dashboard totals over every patient. A cached copy
// is served while fresh; cache failures fall through to a recompute.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	if s.kv != nil {
		err := cache.GetJSON(ctx, s.kv, summaryKey, &sum)
		if err == nil {
			return sum, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Msg("summary cache read failed")
		}
	}

	rows, err := s.Rows(ctx, Filter{IncludeDelivered: true})
	if err != nil {
		return Summary{}, err
	}
	sum = BuildSummary(rows)

	if s.kv != nil {
		if err := cache.SetJSON(ctx, s.kv, summaryKey, sum, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("summary cache write failed")
		}
	}
	return sum, nil
}

// Invalidate drops the cached summary after a write.
func (s *Service) Invalidate(ctx context.Context) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, summaryKey); err != nil {
		s.logger.Warn().Err(err).Msg("summary cache invalidation failed")
	}
}

// Report renders the monitoring workbook. Delivered patients are always
// included so the period's deliveries appear in the archive.
func (s *Service) Report(ctx context.Context, f Filter) ([]byte, error) {
	f.IncludeDelivered = true
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return nil, err
	}
	data, err := ReportXLSX(s.clinic, f, rows)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	s.logger.Info().Int("rows", len(rows)).Str("period", PeriodLabel(f)).Msg("monitoring report exported")
	return data, nil
}
