package monitoring

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ehr/anc/internal/domain/triage"
)

// UnassignedArea labels patients recorded without a district or
// sub-district.
const UnassignedArea = "UNASSIGNED"

// CategoryCounts counts rows per triage category. Every category is
// present, zero or not.
type CategoryCounts map[triage.Category]int

func newCategoryCounts() CategoryCounts {
	c := make(CategoryCounts, len(triage.Categories))
	for _, cat := range triage.Categories {
		c[cat] = 0
	}
	return c
}

// AreaStats is the category breakdown of one district or sub-district.
type AreaStats struct {
	Name       string         `json:"name"`
	Total      int            `json:"total"`
	Urgent     int            `json:"urgent"`
	ByCategory CategoryCounts `json:"by_category"`
}

type Stats struct {
	Total         int            `json:"total"`
	ByCategory    CategoryCounts `json:"by_category"`
	ByDistrict    []AreaStats    `json:"by_district"`
	BySubDistrict []AreaStats    `json:"by_sub_district"`
}

func BuildStats(rows []Row) Stats {
	s := Stats{Total: len(rows), ByCategory: newCategoryCounts()}
	districts := map[string]*AreaStats{}
	subDistricts := map[string]*AreaStats{}

	for _, r := range rows {
		cat := r.Triage.Category
		s.ByCategory[cat]++
		countArea(districts, areaName(r.Patient.District), cat)
		countArea(subDistricts, areaName(r.Patient.SubDistrict), cat)
	}
	s.ByDistrict = sortedAreas(districts)
	s.BySubDistrict = sortedAreas(subDistricts)
	return s
}

func areaName(s string) string {
	if s == "" {
		return UnassignedArea
	}
	return s
}

func countArea(areas map[string]*AreaStats, name string, cat triage.Category) {
	a, ok := areas[name]
	if !ok {
		a = &AreaStats{Name: name, ByCategory: newCategoryCounts()}
		areas[name] = a
	}
	a.Total++
	a.ByCategory[cat]++
	if cat.Urgent() {
		a.Urgent++
	}
}

// sortedAreas orders areas by urgent load, then by name.
func sortedAreas(areas map[string]*AreaStats) []AreaStats {
	out := make([]AreaStats, 0, len(areas))
	for _, a := range areas {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Urgent != out[j].Urgent {
			return out[i].Urgent > out[j].Urgent
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type Marker struct {
	PatientID   uuid.UUID       `json:"patient_id"`
	Name        string          `json:"name"`
	SubDistrict string          `json:"sub_district"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Category    triage.Category `json:"category"`
	ColorToken  string          `json:"color_token"`
}

// MapMarkers places every undelivered patient that has coordinates. The
// input order is kept, so markers for ranked rows come out ranked.
func MapMarkers(rows []Row) []Marker {
	markers := []Marker{}
	for _, r := range rows {
		p := r.Patient
		if p.Delivered() || p.Latitude == nil || p.Longitude == nil {
			continue
		}
		markers = append(markers, Marker{
			PatientID:   p.ID,
			Name:        p.Name,
			SubDistrict: p.SubDistrict,
			Latitude:    *p.Latitude,
			Longitude:   *p.Longitude,
			Category:    r.Triage.Category,
			ColorToken:  r.Triage.ColorToken,
		})
	}
	return markers
}

// Summary holds the dashboard totals.
type Summary struct {
	Patients   int            `json:"patients"`
	Active     int            `json:"active"`
	Delivered  int            `json:"delivered"`
	Missed     int            `json:"missed"`
	DueToday   int            `json:"due_today"`
	Urgent     int            `json:"urgent"`
	ByCategory CategoryCounts `json:"by_category"`
}

// BuildSummary totals rows. Category counts cover active pregnancies only.
func BuildSummary(rows []Row) Summary {
	s := Summary{Patients: len(rows), ByCategory: newCategoryCounts()}
	for _, r := range rows {
		if r.Patient.Delivered() {
			s.Delivered++
			continue
		}
		s.Active++
		s.ByCategory[r.Triage.Category]++
		if r.Triage.Category.Urgent() {
			s.Urgent++
		}
		if r.Missed {
			s.Missed++
		}
		if r.DueToday {
			s.DueToday++
		}
	}
	return s
}
