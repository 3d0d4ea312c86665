package pregnancy

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	vlbwGrams = 1500
	lbwGrams  = 2500
)

// ClassifyBirthWeight classifies a birth weight in grams.
func ClassifyBirthWeight(grams int) WeightClass {
	switch {
	case grams < vlbwGrams:
		return WeightVeryLow
	case grams < lbwGrams:
		return WeightLow
	default:
		return WeightNormal
	}
}

// RecordDelivery closes the active pregnancy of p with delivery d. The
// record is appended to the history and p moves to DELIVERED.
func RecordDelivery(p *Patient, d DeliveryRecord) error {
	if p.Status != StatusActive {
		return fmt.Errorf("record delivery from %s: %w", p.Status, ErrInvalidTransition)
	}
	if d.DeliveryDate.IsZero() {
		return fmt.Errorf("delivery_date is required: %w", ErrValidation)
	}
	if d.BirthWeight < 0 {
		return fmt.Errorf("birth_weight must not be negative: %w", ErrValidation)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.WeightClass = ClassifyBirthWeight(d.BirthWeight)

	p.Delivery = &d
	p.History = append(p.History, d)
	p.Status = StatusDelivered
	return nil
}

// StartNewPregnancy opens a new cycle for a delivered patient. The previous
// delivery stays in the history, the screening profile starts empty, and
// gravida and para each grow by one.
func StartNewPregnancy(p *Patient, lmp time.Time) error {
	if p.Status != StatusDelivered {
		return fmt.Errorf("start new pregnancy from %s: %w", p.Status, ErrInvalidTransition)
	}
	if lmp.IsZero() {
		return fmt.Errorf("last_menstrual_period is required: %w", ErrValidation)
	}
	if d := p.Delivery; d != nil && !hasDelivery(p.History, d.ID) {
		p.History = append(p.History, *d)
	}
	p.Delivery = nil
	p.RiskFactors = []string{}
	p.LastMenstrualPeriod = &lmp
	p.Gravida++
	p.Para++
	p.Status = StatusActive
	return nil
}

// RemoveDeliveryHistory deletes an archived delivery. The delivery that
// closed the current cycle cannot be removed while p is DELIVERED.
func RemoveDeliveryHistory(p *Patient, id uuid.UUID) error {
	i := slices.IndexFunc(p.History, func(d DeliveryRecord) bool { return d.ID == id })
	if i < 0 {
		return fmt.Errorf("delivery %s: %w", id, ErrNotFound)
	}
	if p.Delivered() && p.Delivery != nil && p.Delivery.ID == id {
		return fmt.Errorf("delivery %s closes the current cycle: %w", id, ErrInvalidTransition)
	}
	p.History = slices.Delete(p.History, i, i+1)
	return nil
}

func hasDelivery(history []DeliveryRecord, id uuid.UUID) bool {
	return slices.ContainsFunc(history, func(d DeliveryRecord) bool { return d.ID == id })
}
