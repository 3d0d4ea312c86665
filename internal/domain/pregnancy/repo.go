package pregnancy

import (
	"context"

	"time"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List pages through patients, optionally narrowed by a free-text search.
	List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error)
	ListAll(ctx context.Context) ([]*Patient, error)
}

type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Visit, error)
	ListAll(ctx context.Context) ([]*Visit, error)
}

type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*Alert, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	// Prune keeps only the newest keep alerts.
	Prune(ctx context.Context, keep int) error
}

// ChecklistRepository stores the daily task ticks of each patient.
type ChecklistRepository interface {
	// Get returns the ticked state per task id for day. Tasks never
	// touched that day are absent.
	Get(ctx context.Context, patientID uuid.UUID, day time.Time) (map[string]bool, error)
	Set(ctx context.Context, patientID uuid.UUID, day time.Time, task string, done bool) error
}
