// Package monitoring aggregates patients and their visits into the risk
// monitoring views: the ranked patient list, area statistics, map markers
// and dashboard totals. Everything here is recomputed from the records.
package monitoring

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/anc/internal/domain/pregnancy"
	"github.com/ehr/anc/internal/domain/triage"
)

var ErrInvalidFilter = errors.New("invalid filter")

// RiskFlag marks a finding on the latest visit that warrants attention
// without forcing a category change.
type RiskFlag string

const (
	FlagHypertension    RiskFlag = "HYPERTENSION"
	FlagReducedMovement RiskFlag = "REDUCED_FETAL_MOVEMENT"
	FlagEdema           RiskFlag = "EDEMA"
)

// Hypertension thresholds for the risk flag, below the override range.
const (
	HypertensionSystolic  = 140
	HypertensionDiastolic = 90
)

// Filter narrows the monitoring population. A zero Year means every year;
// a zero Quarter means the whole year.
type Filter struct {
	Year             int    `json:"year,omitempty"`
	Quarter          int    `json:"quarter,omitempty"`
	SubDistrict      string `json:"sub_district,omitempty"`
	IncludeDelivered bool   `json:"include_delivered,omitempty"`
}

func (f Filter) Validate() error {
	if f.Quarter < 0 || f.Quarter > 4 {
		return fmt.Errorf("%w: quarter must be 1-4", ErrInvalidFilter)
	}
	if f.Year < 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidFilter)
	}
	return nil
}

// Periodic reports whether the filter restricts visits to a period.
func (f Filter) Periodic() bool {
	return f.Year != 0 || f.Quarter != 0
}

// InPeriod reports whether t falls inside the filter's year and quarter.
func (f Filter) InPeriod(t time.Time) bool {
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	if f.Quarter != 0 && (int(t.Month())-1)/3+1 != f.Quarter {
		return false
	}
	return true
}

// Row is one patient on the monitoring list.
type Row struct {
	Patient     *pregnancy.Patient      `json:"patient"`
	LatestVisit *pregnancy.Visit        `json:"latest_visit,omitempty"`
	Triage      triage.Result           `json:"triage"`
	Gestation   *triage.GestationalInfo `json:"gestation,omitempty"`
	Missed      bool                    `json:"missed"`
	DueToday    bool                    `json:"due_today"`
	DaysOverdue int                     `json:"days_overdue"`
	RiskFlags   []RiskFlag              `json:"risk_flags"`
}

// BuildRows classifies every patient matching f and ranks the result, most
// urgent first. Patients of equal priority are ordered by how long their
// next visit is overdue, then by name. When f has a period, only visits
// inside it count and patients without one are left out.
func BuildRows(c *triage.Classifier, patients []*pregnancy.Patient, visits []*pregnancy.Visit, f Filter, now time.Time) []Row {
	if c == nil {
		c = triage.NewClassifier(nil)
	}
	byPatient := make(map[uuid.UUID][]*pregnancy.Visit)
	for _, v := range visits {
		if v == nil || (f.Periodic() && !f.InPeriod(v.VisitDate)) {
			continue
		}
		byPatient[v.PatientID] = append(byPatient[v.PatientID], v)
	}

	rows := make([]Row, 0, len(patients))
	for _, p := range patients {
		if p == nil {
			continue
		}
		if p.Delivered() && !f.IncludeDelivered {
			continue
		}
		if f.SubDistrict != "" && p.SubDistrict != f.SubDistrict {
			continue
		}
		latest := pregnancy.LatestVisit(byPatient[p.ID])
		if f.Periodic() && latest == nil {
			continue
		}
		rows = append(rows, buildRow(c, p, latest, now))
	}

	triage.SortByPriority(rows, func(r Row) triage.Result { return r.Triage }, func(a, b Row) int {
		if d := cmp.Compare(b.DaysOverdue, a.DaysOverdue); d != 0 {
			return d
		}
		return cmp.Compare(a.Patient.Name, b.Patient.Name)
	})
	return rows
}

func buildRow(c *triage.Classifier, p *pregnancy.Patient, latest *pregnancy.Visit, now time.Time) Row {
	row := Row{
		Patient:     p,
		LatestVisit: latest,
		Triage:      c.Classify(p.Profile(), latest.Vitals()),
		Missed:      pregnancy.MissedVisit(p, latest, now),
		RiskFlags:   RiskFlags(latest),
	}
	if !p.Delivered() {
		row.DueToday = pregnancy.VisitDueOn(latest, now)
		row.DaysOverdue = pregnancy.DaysOverdue(latest, now)
		if p.LastMenstrualPeriod != nil {
			if info, ok := triage.Progress(*p.LastMenstrualPeriod, now); ok {
				row.Gestation = &info
			}
		}
	}
	return row
}

// RiskFlags lists the attention flags raised by a visit.
func RiskFlags(v *pregnancy.Visit) []RiskFlag {
	flags := []RiskFlag{}
	if v == nil {
		return flags
	}
	sys, dia := triage.ParseBloodPressure(v.BloodPressure)
	if sys >= HypertensionSystolic || dia >= HypertensionDiastolic {
		flags = append(flags, FlagHypertension)
	}
	if triage.ParseFetalMovement(v.FetalMovement) == triage.MovementReduced {
		flags = append(flags, FlagReducedMovement)
	}
	if v.Edema {
		flags = append(flags, FlagEdema)
	}
	return flags
}
