package pregnancy

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/anc/internal/domain/triage"
)

func TestClassifyBirthWeight(t *testing.T) {
	tests := []struct {
		grams int
		want  WeightClass
	}{
		{0, WeightVeryLow},
		{1499, WeightVeryLow},
		{1500, WeightLow},
		{2499, WeightLow},
		{2500, WeightNormal},
		{4200, WeightNormal},
	}
	for _, tt := range tests {
		if got := ClassifyBirthWeight(tt.grams); got != tt.want {
			t.Errorf("ClassifyBirthWeight(%d) = %s, want %s", tt.grams, got, tt.want)
		}
	}
}

func activePatient() *Patient {
	lmp := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	return &Patient{
		ID:                  uuid.New(),
		Name:                "Dewi",
		Status:              StatusActive,
		Gravida:             2,
		Para:                1,
		RiskFactors:         []string{triage.FactorTooSoon},
		LastMenstrualPeriod: &lmp,
	}
}

func TestRecordDelivery(t *testing.T) {
	p := activePatient()
	d := DeliveryRecord{DeliveryDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), BirthWeight: 1400}

	if err := RecordDelivery(p, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusDelivered {
		t.Errorf("expected DELIVERED, got %s", p.Status)
	}
	if p.Delivery == nil || p.Delivery.ID == uuid.Nil {
		t.Fatal("expected delivery with an id")
	}
	if p.Delivery.WeightClass != WeightVeryLow {
		t.Errorf("expected VLBW, got %s", p.Delivery.WeightClass)
	}
	if len(p.History) != 1 || p.History[0].ID != p.Delivery.ID {
		t.Errorf("expected the delivery to be archived, got %+v", p.History)
	}
	if p.Gravida != 2 || p.Para != 1 {
		t.Error("delivery must not change gravida or para")
	}
}

func TestRecordDelivery_Invalid(t *testing.T) {
	p := activePatient()
	if err := RecordDelivery(p, DeliveryRecord{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing date, got %v", err)
	}
	if err := RecordDelivery(p, DeliveryRecord{DeliveryDate: time.Now(), BirthWeight: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative weight, got %v", err)
	}
	if p.Status != StatusActive || len(p.History) != 0 {
		t.Error("failed delivery must leave the patient unchanged")
	}

	p.Status = StatusDelivered
	if err := RecordDelivery(p, DeliveryRecord{DeliveryDate: time.Now()}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartNewPregnancy(t *testing.T) {
	p := activePatient()
	if err := RecordDelivery(p, DeliveryRecord{DeliveryDate: time.Now(), BirthWeight: 3200}); err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	lmp := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	if err := StartNewPregnancy(p, lmp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("expected ACTIVE_PREGNANCY, got %s", p.Status)
	}
	if p.Delivery != nil {
		t.Error("expected current delivery to be cleared")
	}
	if len(p.History) != 1 {
		t.Errorf("expected history to keep one delivery, got %d", len(p.History))
	}
	if !p.Profile().Empty() {
		t.Errorf("expected empty screening profile, got %v", p.RiskFactors)
	}
	if p.Gravida != 3 || p.Para != 2 {
		t.Errorf("expected G3 P2, got G%d P%d", p.Gravida, p.Para)
	}
	if !p.LastMenstrualPeriod.Equal(lmp) {
		t.Errorf("expected new lmp, got %v", p.LastMenstrualPeriod)
	}
}

func TestStartNewPregnancy_ArchivesMissingDelivery(t *testing.T) {
	p := activePatient()
	p.Status = StatusDelivered
	p.Delivery = &DeliveryRecord{ID: uuid.New(), DeliveryDate: time.Now()}

	if err := StartNewPregnancy(p, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.History) != 1 {
		t.Fatalf("expected unarchived delivery to be added, got %d", len(p.History))
	}
}

func TestStartNewPregnancy_Invalid(t *testing.T) {
	p := activePatient()
	if err := StartNewPregnancy(p, time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from active, got %v", err)
	}
	p.Status = StatusDelivered
	if err := StartNewPregnancy(p, time.Time{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero lmp, got %v", err)
	}
}

func TestRemoveDeliveryHistory(t *testing.T) {
	p := activePatient()
	old := DeliveryRecord{ID: uuid.New()}
	p.History = []DeliveryRecord{old, {ID: uuid.New()}}

	if err := RemoveDeliveryHistory(p, old.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.History) != 1 || p.History[0].ID == old.ID {
		t.Errorf("expected %s to be removed, got %+v", old.ID, p.History)
	}
	if err := RemoveDeliveryHistory(p, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveDeliveryHistory_CurrentDelivery(t *testing.T) {
	p := activePatient()
	if err := RecordDelivery(p, DeliveryRecord{DeliveryDate: time.Now(), BirthWeight: 3000}); err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	if err := RemoveDeliveryHistory(p, p.Delivery.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}
