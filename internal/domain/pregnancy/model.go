package pregnancy

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/anc/internal/domain/triage"
)

// Status is the pregnancy cycle state of a patient.
type Status string

const (
	StatusActive    Status = "ACTIVE_PREGNANCY"
	StatusDelivered Status = "DELIVERED"
)

// WeightClass is the birth weight classification of a delivery.
type WeightClass string

const (
	WeightNormal WeightClass = "NORMAL"
	// WeightLow is low birth weight, under 2500 g.
	WeightLow WeightClass = "LBW"
	// WeightVeryLow is very low birth weight, under 1500 g.
	WeightVeryLow WeightClass = "VLBW"
)

// Patient maps to the patient table. One row carries the current pregnancy
// cycle; earlier deliveries live in History.
type Patient struct {
	ID                  uuid.UUID        `db:"id" json:"id"`
	UserID              *uuid.UUID       `db:"user_id" json:"user_id,omitempty"`
	Name                string           `db:"name" json:"name"`
	DateOfBirth         *time.Time       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone               string           `db:"phone" json:"phone"`
	Address             string           `db:"address" json:"address"`
	District            string           `db:"district" json:"district"`
	SubDistrict         string           `db:"sub_district" json:"sub_district"`
	Latitude            *float64         `db:"latitude" json:"latitude,omitempty"`
	Longitude           *float64         `db:"longitude" json:"longitude,omitempty"`
	LastMenstrualPeriod *time.Time       `db:"last_menstrual_period" json:"last_menstrual_period,omitempty"`
	Gravida             int              `db:"gravida" json:"gravida"`
	Para                int              `db:"para" json:"para"`
	Abortus             int              `db:"abortus" json:"abortus"`
	MedicalHistory      string           `db:"medical_history" json:"medical_history"`
	RiskFactors         []string         `db:"risk_factors" json:"risk_factors"`
	Active              bool             `db:"active" json:"active"`
	Status              Status           `db:"status" json:"status"`
	Delivery            *DeliveryRecord  `db:"delivery" json:"delivery,omitempty"`
	History             []DeliveryRecord `db:"history" json:"history"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// Profile returns the patient's screening profile.
func (p *Patient) Profile() triage.ScreeningProfile {
	return triage.NewScreeningProfile(p.RiskFactors...)
}

// Delivered reports whether the current pregnancy has ended in delivery.
func (p *Patient) Delivered() bool {
	return p.Status == StatusDelivered
}

// DeliveryRecord is one delivery outcome. It is stored as JSON on the
// patient row, both as the current delivery and inside History.
type DeliveryRecord struct {
	ID           uuid.UUID   `json:"id"`
	DeliveryDate time.Time   `json:"delivery_date"`
	BabyName     string      `json:"baby_name,omitempty"`
	BabyGender   string      `json:"baby_gender"`
	BirthWeight  int         `json:"birth_weight"` // grams
	BirthLength  float64     `json:"birth_length"` // cm
	MotherStatus string      `json:"mother_status"`
	BabyStatus   string      `json:"baby_status"`
	WeightClass  WeightClass `json:"weight_class"`
	Condition    string      `json:"condition,omitempty"`
}

// VisitStatus is the state of an antenatal visit record.
type VisitStatus string

const (
	VisitCompleted VisitStatus = "COMPLETED"
	VisitScheduled VisitStatus = "SCHEDULED"
	VisitMissed    VisitStatus = "MISSED"
)

// Visit maps to the anc_visit table.
type Visit struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	VisitDate      time.Time   `db:"visit_date" json:"visit_date"`
	ScheduledDate  *time.Time  `db:"scheduled_date" json:"scheduled_date,omitempty"`
	NextVisitDate  *time.Time  `db:"next_visit_date" json:"next_visit_date,omitempty"`
	Weight         *float64    `db:"weight" json:"weight,omitempty"`
	BloodPressure  string      `db:"blood_pressure" json:"blood_pressure"`
	FundalHeight   *float64    `db:"fundal_height" json:"fundal_height,omitempty"`
	FetalHeartRate int         `db:"fetal_heart_rate" json:"fetal_heart_rate"`
	Hemoglobin     *float64    `db:"hemoglobin" json:"hemoglobin,omitempty"`
	Complaints     string      `db:"complaints" json:"complaints"`
	DangerSigns    []string    `db:"danger_signs" json:"danger_signs"`
	Edema          bool        `db:"edema" json:"edema"`
	FetalMovement  string      `db:"fetal_movement" json:"fetal_movement"`
	FollowUp       string      `db:"follow_up" json:"follow_up"`
	Note           string      `db:"note" json:"note"`
	ProviderID     *uuid.UUID  `db:"provider_id" json:"provider_id,omitempty"`
	Status         VisitStatus `db:"status" json:"status"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Completed reports whether the visit took place. Records without a
// status predate the field and count as completed.
func (v *Visit) Completed() bool {
	return v.Status == VisitCompleted || v.Status == ""
}

// Vitals returns the clinical snapshot the triage engine reads.
func (v *Visit) Vitals() *triage.VisitVitals {
	if v == nil {
		return nil
	}
	return &triage.VisitVitals{
		BloodPressure:  v.BloodPressure,
		FetalHeartRate: v.FetalHeartRate,
		DangerSigns:    v.DangerSigns,
		FetalMovement:  triage.ParseFetalMovement(v.FetalMovement),
	}
}

// AlertType classifies a clinic alert.
type AlertType string

const (
	AlertEmergency AlertType = "EMERGENCY"
	AlertMissed    AlertType = "MISSED"
)

// Alert maps to the alert table.
type Alert struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Type        AlertType `db:"type" json:"type"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Message     string    `db:"message" json:"message"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Assessment is the derived triage view of one patient. It is computed on
// request and never stored.
type Assessment struct {
	Patient     *Patient                `json:"patient"`
	LatestVisit *Visit                  `json:"latest_visit,omitempty"`
	Triage      triage.Result           `json:"triage"`
	Gestation   *triage.GestationalInfo `json:"gestation,omitempty"`
	FetalSize   string                  `json:"fetal_size,omitempty"`
	MissedVisit bool                    `json:"missed_visit"`
}
