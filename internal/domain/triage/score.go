package triage

import (
	"sort"
	"strings"
)

// BaseScore is the floor risk every pregnancy carries before any factor.
const BaseScore = 2

// ScreeningProfile is the set of risk factors selected for a patient.
// FactorIDs is always trimmed, de-duplicated and sorted when built with
// NewScreeningProfile.
type ScreeningProfile struct {
	FactorIDs []string `json:"factor_ids"`
}

// NewScreeningProfile builds a profile with set semantics: blank IDs are
// dropped and duplicates collapse to one entry.
func NewScreeningProfile(ids ...string) ScreeningProfile {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return ScreeningProfile{FactorIDs: out}
}

// Empty reports whether no factor is selected.
func (p ScreeningProfile) Empty() bool {
	return len(p.FactorIDs) == 0
}

// Contains reports whether id is selected.
func (p ScreeningProfile) Contains(id string) bool {
	i := sort.SearchStrings(p.FactorIDs, id)
	return i < len(p.FactorIDs) && p.FactorIDs[i] == id
}

// Score returns BaseScore plus the points of every distinct known ID.
func (c *Catalog) Score(ids []string) int {
	total := BaseScore
	for _, id := range NewScreeningProfile(ids...).FactorIDs {
		total += c.Points(id)
	}
	return total
}

// Score scores ids against the default catalog.
func Score(ids []string) int {
	return defaultCatalog.Score(ids)
}
