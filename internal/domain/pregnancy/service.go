package pregnancy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/anc/internal/domain/triage"
	"github.com/ehr/anc/internal/platform/metrics"
)

// AlertRetention is the number of alerts kept; older ones are pruned.
const AlertRetention = 50

// TxFunc runs fn inside a unit of work. Repositories pick the transaction
// up from the context passed to fn.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func noTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	patients   PatientRepository
	visits     VisitRepository
	alerts     AlertRepository
	checklists ChecklistRepository
	classifier *triage.Classifier
	logger     zerolog.Logger
	now        func() time.Time
	inTx       TxFunc
	onChange   func(ctx context.Context)
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for gestational age and missed
// visit checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithClassifier overrides the default triage classifier.
func WithClassifier(c *triage.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithTx runs multi-write operations inside fn's unit of work.
func WithTx(fn TxFunc) Option {
	return func(s *Service) { s.inTx = fn }
}

// WithChecklist enables the patient daily checklist.
func WithChecklist(repo ChecklistRepository) Option {
	return func(s *Service) { s.checklists = repo }
}

// WithChangeHook calls fn after every successful write, for example to
// drop cached aggregates.
func WithChangeHook(fn func(ctx context.Context)) Option {
	return func(s *Service) { s.onChange = fn }
}

func NewService(
	patients PatientRepository,
	visits VisitRepository,
	alerts AlertRepository,
	logger zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		patients:   patients,
		visits:     visits,
		alerts:     alerts,
		classifier: triage.NewClassifier(nil),
		logger:     logger.With().Str("component", "pregnancy").Logger(),
		now:        time.Now,
		inTx:       noTx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

// Catalog returns the risk factor catalog patients are screened against.
func (s *Service) Catalog() *triage.Catalog {
	return s.classifier.Catalog()
}

// -- Patient --

func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if err := s.validateCounts(p); err != nil {
		return err
	}
	if unknown := s.Catalog().Unknown(p.RiskFactors); len(unknown) > 0 {
		return fmt.Errorf("unknown risk factors %s: %w", strings.Join(unknown, ", "), ErrValidation)
	}
	p.RiskFactors = p.Profile().FactorIDs
	p.Status = StatusActive
	p.Active = true
	p.Delivery = nil
	p.History = []DeliveryRecord{}
	if err := s.patients.Create(ctx, p); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	s.changed(ctx)
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.patients.GetByUserID(ctx, userID)
}

// UpdatePatient replaces the editable fields of a patient. Cycle state
// (status, delivery, history) only changes through the cycle operations,
// and the account link and active flag are kept from the stored record.
// Risk factors already on the record are kept even when they left the
// catalog; newly added ones must be known.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if err := s.validateCounts(p); err != nil {
		return err
	}
	var added []string
	for _, id := range s.Catalog().Unknown(p.RiskFactors) {
		if !existing.Profile().Contains(id) {
			added = append(added, id)
		}
	}
	if len(added) > 0 {
		return fmt.Errorf("unknown risk factors %s: %w", strings.Join(added, ", "), ErrValidation)
	}
	p.RiskFactors = p.Profile().FactorIDs
	p.UserID = existing.UserID
	p.Active = existing.Active
	p.Status = existing.Status
	p.Delivery = existing.Delivery
	p.History = existing.History
	p.CreatedAt = existing.CreatedAt
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// SetActive enables or disables a patient for broadcasts and the patient
// portal.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Active == active {
		return p, nil
	}
	p.Active = active
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	s.changed(ctx)
	s.logger.Info().
		Str("patient_id", p.ID.String()).
		Bool("active", active).
		Msg("patient access changed")
	return p, nil
}

func (s *Service) validateCounts(p *Patient) error {
	if p.Gravida < 0 || p.Para < 0 || p.Abortus < 0 {
		return fmt.Errorf("gravida, para and abortus must not be negative: %w", ErrValidation)
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together: %w", ErrValidation)
	}
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// ListPatients pages through patients whose name, phone, address or
// sub-district contains search.
func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}

// -- Visit --

// RecordVisit stores a visit and classifies the patient with it. A RED or
// BLACK result raises an emergency alert.
func (s *Service) RecordVisit(ctx context.Context, v *Visit) (*Assessment, error) {
	if v.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required: %w", ErrValidation)
	}
	if v.VisitDate.IsZero() {
		v.VisitDate = CalendarDay(s.now())
	}
	if v.Status == "" {
		v.Status = VisitCompleted
	}
	if v.FetalHeartRate < 0 {
		return nil, fmt.Errorf("fetal_heart_rate must not be negative: %w", ErrValidation)
	}

	var assessment *Assessment
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, v.PatientID)
		if err != nil {
			return err
		}
		if err := s.visits.Create(ctx, v); err != nil {
			return fmt.Errorf("create visit: %w", err)
		}
		visits, err := s.visits.ListByPatient(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list visits: %w", err)
		}
		assessment = s.assess(p, visits)
		return s.checkEmergency(ctx, p, v)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	return assessment, nil
}

// checkEmergency raises an emergency alert when a completed visit puts the
// patient in RED or BLACK.
func (s *Service) checkEmergency(ctx context.Context, p *Patient, v *Visit) error {
	if !v.Completed() {
		return nil
	}
	result := s.classifier.Classify(p.Profile(), v.Vitals())
	if !result.Category.Urgent() {
		return nil
	}
	return s.raiseEmergency(ctx, p, result)
}

func (s *Service) raiseEmergency(ctx context.Context, p *Patient, result triage.Result) error {
	a := &Alert{
		Type:        AlertEmergency,
		PatientID:   p.ID,
		PatientName: p.Name,
		Message:     fmt.Sprintf("%s triaged %s (%s)", p.Name, result.Category, result.Description),
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	if err := s.alerts.Prune(ctx, AlertRetention); err != nil {
		return err
	}
	metrics.RecordAlert(string(a.Type))
	s.logger.Warn().
		Str("patient_id", p.ID.String()).
		Str("category", string(result.Category)).
		Int("score", result.Score).
		Msg("emergency alert raised")
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.visits.GetByID(ctx, id)
}

// UpdateVisit replaces a visit in place. The owning patient cannot change.
// A corrected visit is classified again and raises an emergency alert the
// same way a new one does.
func (s *Service) UpdateVisit(ctx context.Context, v *Visit) error {
	if v.FetalHeartRate < 0 {
		return fmt.Errorf("fetal_heart_rate must not be negative: %w", ErrValidation)
	}
	err := s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.visits.GetByID(ctx, v.ID)
		if err != nil {
			return err
		}
		if v.VisitDate.IsZero() {
			v.VisitDate = existing.VisitDate
		}
		if v.Status == "" {
			v.Status = existing.Status
		}
		v.PatientID = existing.PatientID
		v.CreatedAt = existing.CreatedAt
		p, err := s.patients.GetByID(ctx, v.PatientID)
		if err != nil {
			return err
		}
		if err := s.visits.Update(ctx, v); err != nil {
			return err
		}
		return s.checkEmergency(ctx, p, v)
	})
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	if err := s.visits.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Service) ListVisits(ctx context.Context, patientID uuid.UUID) ([]*Visit, error) {
	return s.visits.ListByPatient(ctx, patientID)
}

// -- Assessment --

// Assess recomputes the triage view of a patient from the current record
// and visits.
func (s *Service) Assess(ctx context.Context, patientID uuid.UUID) (*Assessment, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	visits, err := s.visits.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return s.assess(p, visits), nil
}

func (s *Service) assess(p *Patient, visits []*Visit) *Assessment {
	now := s.now()
	latest := LatestVisit(visits)
	a := &Assessment{
		Patient:     p,
		LatestVisit: latest,
		Triage:      s.classifier.Classify(p.Profile(), latest.Vitals()),
		MissedVisit: MissedVisit(p, latest, now),
	}
	if !p.Delivered() && p.LastMenstrualPeriod != nil {
		if info, ok := triage.Progress(*p.LastMenstrualPeriod, now); ok {
			a.Gestation = &info
			a.FetalSize = triage.FetalSize(info.Weeks)
		}
	}
	metrics.RecordAssessment(string(a.Triage.Category))
	return a
}

// -- Alerts --

func (s *Service) ListAlerts(ctx context.Context, unreadOnly bool, limit, offset int) ([]*Alert, int, error) {
	return s.alerts.List(ctx, unreadOnly, limit, offset)
}

func (s *Service) MarkAlertRead(ctx context.Context, id uuid.UUID) error {
	return s.alerts.MarkRead(ctx, id)
}

// -- Pregnancy cycle --

func (s *Service) RecordDelivery(ctx context.Context, patientID uuid.UUID, d DeliveryRecord) (*Patient, error) {
	return s.transition(ctx, patientID, "delivery recorded", func(p *Patient) error {
		return RecordDelivery(p, d)
	})
}

func (s *Service) StartNewPregnancy(ctx context.Context, patientID uuid.UUID, lmp time.Time) (*Patient, error) {
	return s.transition(ctx, patientID, "new pregnancy started", func(p *Patient) error {
		return StartNewPregnancy(p, lmp)
	})
}

func (s *Service) RemoveDeliveryHistory(ctx context.Context, patientID, deliveryID uuid.UUID) (*Patient, error) {
	return s.transition(ctx, patientID, "delivery history removed", func(p *Patient) error {
		return RemoveDeliveryHistory(p, deliveryID)
	})
}

func (s *Service) transition(ctx context.Context, patientID uuid.UUID, msg string, apply func(*Patient) error) (*Patient, error) {
	var out *Patient
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, patientID)
		if err != nil {
			return err
		}
		if err := apply(p); err != nil {
			return err
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return fmt.Errorf("update patient: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	s.logger.Info().
		Str("patient_id", out.ID.String()).
		Str("status", string(out.Status)).
		Int("history", len(out.History)).
		Msg(msg)
	return out, nil
}
