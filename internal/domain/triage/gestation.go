package triage

import (
	"math"
	"strings"
	"time"
)

const (
	// TermDays is the length of a full-term pregnancy counted from the LMP (Naegele's rule).
	TermDays = 280
	// daysPerMonth is the average month length used for month-of-pregnancy.
	daysPerMonth = 30.417
)

// GestationalInfo is the gestational age derived from an LMP date.
type GestationalInfo struct {
	Days             int       `json:"days"`
	Weeks            int       `json:"weeks"`
	Months           int       `json:"months"`
	EstimatedDueDate time.Time `json:"estimated_due_date"`
	PercentComplete  int       `json:"percent_complete"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate parses a calendar date as stored on patient and visit records.
// Date-only values are read as midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Progress computes gestational age at now for a pregnancy whose last
// menstrual period started on lmp. It reports false for a zero lmp or an
// lmp after now.
func Progress(lmp, now time.Time) (GestationalInfo, bool) {
	if lmp.IsZero() {
		return GestationalInfo{}, false
	}
	days := int(math.Floor(now.Sub(lmp).Hours() / 24))
	if days < 0 {
		return GestationalInfo{}, false
	}
	pct := int(math.Round(float64(days) / TermDays * 100))
	if pct > 100 {
		pct = 100
	}
	return GestationalInfo{
		Days:             days,
		Weeks:            days / 7,
		Months:           int(math.Floor(float64(days) / daysPerMonth)),
		EstimatedDueDate: lmp.AddDate(0, 0, TermDays),
		PercentComplete:  pct,
	}, true
}

// GestationalProgress is Progress over a stored LMP string. It returns nil
// when the LMP is missing, unparseable or in the future; callers must treat
// nil as unknown rather than zero.
func GestationalProgress(lmp string, now time.Time) *GestationalInfo {
	t, ok := ParseDate(lmp)
	if !ok {
		return nil
	}
	info, ok := Progress(t, now)
	if !ok {
		return nil
	}
	return &info
}

var fetalSizes = []struct {
	maxWeek int
	name    string
}{
	{4, "poppy seed"},
	{8, "raspberry"},
	{12, "lemon"},
	{16, "avocado"},
	{20, "banana"},
	{24, "corn cob"},
	{28, "eggplant"},
	{32, "coconut"},
	{36, "melon"},
}

// FetalSize returns the everyday-object size comparison shown to mothers
// for a given gestational week.
func FetalSize(weeks int) string {
	for _, s := range fetalSizes {
		if weeks <= s.maxWeek {
			return s.name
		}
	}
	return "small watermelon"
}
