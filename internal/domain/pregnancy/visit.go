package pregnancy

import "time"

// LatestVisit returns the most recent completed visit by visit date, or nil
// when the patient has none. Visits on the same day are ordered by
// creation time.
func LatestVisit(visits []*Visit) *Visit {
	var latest *Visit
	for _, v := range visits {
		if v == nil || !v.Completed() {
			continue
		}
		if latest == nil || v.VisitDate.After(latest.VisitDate) ||
			(v.VisitDate.Equal(latest.VisitDate) && v.CreatedAt.After(latest.CreatedAt)) {
			latest = v
		}
	}
	return latest
}

// CalendarDay truncates t to midnight UTC of its calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MissedVisit reports whether the next visit scheduled at the latest visit
// is already in the past. Delivered patients never miss a visit.
func MissedVisit(p *Patient, latest *Visit, now time.Time) bool {
	if p == nil || p.Delivered() || latest == nil || latest.NextVisitDate == nil {
		return false
	}
	return CalendarDay(*latest.NextVisitDate).Before(CalendarDay(now))
}

// VisitDueOn reports whether the next visit of latest falls on the
// calendar day of t.
func VisitDueOn(latest *Visit, t time.Time) bool {
	if latest == nil || latest.NextVisitDate == nil {
		return false
	}
	return CalendarDay(*latest.NextVisitDate).Equal(CalendarDay(t))
}

// DaysOverdue returns how many days the next visit is past due, or 0.
func DaysOverdue(latest *Visit, now time.Time) int {
	if latest == nil || latest.NextVisitDate == nil {
		return 0
	}
	d := int(CalendarDay(now).Sub(CalendarDay(*latest.NextVisitDate)).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
