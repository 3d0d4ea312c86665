package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/ehr/anc/internal/domain/pregnancy"
	"github.com/ehr/anc/internal/domain/triage"
)

type PatientSource interface {
	ListAll(ctx context.Context) ([]*pregnancy.Patient, error)
}

type VisitSource interface {
	ListAll(ctx context.Context) ([]*pregnancy.Visit, error)
}

type Service struct {
	patients   PatientSource
	visits     VisitSource
	classifier *triage.Classifier
	dispatcher *Dispatcher
	clinic     string
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithClassifier(c *triage.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithDispatcher enables gateway sending. Without one only previews and
// manual links are available.
func WithDispatcher(d *Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithClinic(name string) Option {
	return func(s *Service) { s.clinic = name }
}

func NewService(patients PatientSource, visits VisitSource, opts ...Option) *Service {
	s := &Service{
		patients:   patients,
		visits:     visits,
		classifier: triage.NewClassifier(nil),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanSend reports whether a gateway is configured.
func (s *Service) CanSend() bool {
	return s.dispatcher != nil
}

// Template returns tpl, or the group's stock template when tpl is empty.
func (s *Service) Template(group Group, tpl string) string {
	if tpl == "" {
		return DefaultTemplate(group, s.clinic)
	}
	return tpl
}

// Preview builds the pending queue for group without sending anything.
func (s *Service) Preview(ctx context.Context, group Group, tpl string) ([]Item, error) {
	patients, err := s.patients.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	visits, err := s.visits.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	recipients := SelectRecipients(s.classifier, group, patients, visits, s.now())
	return Queue(s.Template(group, tpl), recipients), nil
}

// Send builds the queue for group and dispatches it through the gateway.
func (s *Service) Send(ctx context.Context, group Group, tpl string) (Result, error) {
	if s.dispatcher == nil {
		return Result{}, ErrNoSender
	}
	items, err := s.Preview(ctx, group, tpl)
	if err != nil {
		return Result{}, err
	}
	return s.dispatcher.Dispatch(ctx, group, items), nil
}
