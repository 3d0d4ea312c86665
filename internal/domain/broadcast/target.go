// Package broadcast selects patients for WhatsApp reminders, renders the
// messages and sends them through a gateway at a bounded rate.
package broadcast

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/anc/internal/domain/pregnancy"
	"github.com/ehr/anc/internal/domain/triage"
)

var ErrUnknownGroup = errors.New("unknown target group")

// Group is a broadcast audience.
type Group string

const (
	GroupAll           Group = "ALL"
	GroupRiskHigh      Group = "RISK_HIGH"
	GroupMissedVisit   Group = "MISSED_VISIT"
	GroupUpcomingVisit Group = "UPCOMING_VISIT"
)

var Groups = []Group{GroupAll, GroupRiskHigh, GroupMissedVisit, GroupUpcomingVisit}

// ParseGroup accepts a group name in any case. Empty means ALL.
func ParseGroup(s string) (Group, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return GroupAll, nil
	}
	for _, g := range Groups {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroup, s)
}

// Recipient is a patient selected for a broadcast.
type Recipient struct {
	PatientID uuid.UUID       `json:"patient_id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	NextVisit *time.Time      `json:"next_visit,omitempty"`
	Category  triage.Category `json:"category"`
}

// SelectRecipients returns the active pregnancies that belong to group,
// in input order. RISK_HIGH is RED or BLACK on the latest visit; the
// visit groups look at the latest visit's next visit date.
func SelectRecipients(c *triage.Classifier, group Group, patients []*pregnancy.Patient, visits []*pregnancy.Visit, now time.Time) []Recipient {
	if c == nil {
		c = triage.NewClassifier(nil)
	}
	byPatient := make(map[uuid.UUID][]*pregnancy.Visit)
	for _, v := range visits {
		if v != nil {
			byPatient[v.PatientID] = append(byPatient[v.PatientID], v)
		}
	}
	tomorrow := now.AddDate(0, 0, 1)

	out := []Recipient{}
	for _, p := range patients {
		if p == nil || p.Delivered() || !p.Active {
			continue
		}
		latest := pregnancy.LatestVisit(byPatient[p.ID])
		result := c.Classify(p.Profile(), latest.Vitals())

		var match bool
		switch group {
		case GroupAll:
			match = true
		case GroupRiskHigh:
			match = result.Category.Urgent()
		case GroupMissedVisit:
			match = pregnancy.MissedVisit(p, latest, now)
		case GroupUpcomingVisit:
			match = pregnancy.VisitDueOn(latest, tomorrow)
		}
		if !match {
			continue
		}

		r := Recipient{PatientID: p.ID, Name: p.Name, Phone: p.Phone, Category: result.Category}
		if latest != nil {
			r.NextVisit = latest.NextVisitDate
		}
		out = append(out, r)
	}
	return out
}
