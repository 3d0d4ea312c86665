package pregnancy

import (
	"testing"
	"time"

	"github.com/ehr/anc/internal/domain/triage"
)

func TestLatestVisit(t *testing.T) {
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	early := &Visit{VisitDate: *dayPtr(2025, 3, 1), CreatedAt: created}
	late := &Visit{VisitDate: *dayPtr(2025, 5, 1), CreatedAt: created}
	sameDayLater := &Visit{VisitDate: *dayPtr(2025, 5, 1), CreatedAt: created.Add(time.Hour)}
	scheduled := &Visit{VisitDate: *dayPtr(2025, 6, 1), Status: VisitScheduled}
	legacy := &Visit{VisitDate: *dayPtr(2025, 4, 1)}

	tests := []struct {
		name   string
		visits []*Visit
		want   *Visit
	}{
		{"none", nil, nil},
		{"only scheduled", []*Visit{scheduled}, nil},
		{"by date", []*Visit{late, early}, late},
		{"ignores scheduled", []*Visit{early, scheduled}, early},
		{"same day by creation", []*Visit{sameDayLater, late}, sameDayLater},
		{"status-less counts", []*Visit{early, legacy, nil}, legacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LatestVisit(tt.visits); got != tt.want {
				t.Errorf("LatestVisit() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMissedVisit(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	active := &Patient{Status: StatusActive}
	delivered := &Patient{Status: StatusDelivered}

	tests := []struct {
		name   string
		p      *Patient
		latest *Visit
		want   bool
	}{
		{"no visit", active, nil, false},
		{"no next date", active, &Visit{}, false},
		{"yesterday", active, &Visit{NextVisitDate: dayPtr(2025, 5, 31)}, true},
		{"today", active, &Visit{NextVisitDate: dayPtr(2025, 6, 1)}, false},
		{"tomorrow", active, &Visit{NextVisitDate: dayPtr(2025, 6, 2)}, false},
		{"delivered", delivered, &Visit{NextVisitDate: dayPtr(2025, 1, 1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MissedVisit(tt.p, tt.latest, now); got != tt.want {
				t.Errorf("MissedVisit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisitDueOnAndDaysOverdue(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	v := &Visit{NextVisitDate: dayPtr(2025, 6, 3)}
	if got := DaysOverdue(v, now); got != 7 {
		t.Errorf("DaysOverdue() = %d, want 7", got)
	}
	if got := DaysOverdue(&Visit{NextVisitDate: dayPtr(2025, 6, 20)}, now); got != 0 {
		t.Errorf("expected future visit to be 0 days overdue, got %d", got)
	}
	if !VisitDueOn(&Visit{NextVisitDate: dayPtr(2025, 6, 11)}, now.AddDate(0, 0, 1)) {
		t.Error("expected visit to be due tomorrow")
	}
	if VisitDueOn(nil, now) {
		t.Error("expected nil visit not to be due")
	}
}

func TestVisit_Vitals(t *testing.T) {
	var none *Visit
	if none.Vitals() != nil {
		t.Error("expected nil vitals for nil visit")
	}
	v := &Visit{BloodPressure: "120/80", FetalHeartRate: 150, FetalMovement: "Tidak Ada", DangerSigns: []string{"Kejang"}}
	got := v.Vitals()
	if got.FetalMovement != triage.MovementAbsent {
		t.Errorf("expected legacy movement to map to Absent, got %s", got.FetalMovement)
	}
	if !triage.IsOverride(got) {
		t.Error("expected override")
	}
}
