package triage

import "sort"

// Group is the severity grouping of a risk factor. It is a display label;
// only the point value takes part in scoring.
type Group string

const (
	// GroupI covers obstetric risk potential (age, parity, spacing, stature).
	GroupI Group = "I"
	// GroupII covers present obstetric risk (maternal disease, presentation, prior cesarean).
	GroupII Group = "II"
	// GroupIII covers obstetric emergencies (antepartum bleeding, eclampsia).
	GroupIII Group = "III"
)

// RiskFactor is one immutable entry of the screening catalog.
type RiskFactor struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Short  string `json:"short"`
	Points int    `json:"points"`
	Group  Group  `json:"group"`
}

// Catalog is a read-only table of risk factors keyed by ID. A Catalog is
// never mutated after construction and may be shared between goroutines.
type Catalog struct {
	byID  map[string]RiskFactor
	order []string
}

// NewCatalog builds a catalog from the given factors. Later entries with a
// duplicate ID replace earlier ones; declaration order is kept for listing.
func NewCatalog(factors ...RiskFactor) *Catalog {
	c := &Catalog{byID: make(map[string]RiskFactor, len(factors))}
	for _, f := range factors {
		if _, seen := c.byID[f.ID]; !seen {
			c.order = append(c.order, f.ID)
		}
		c.byID[f.ID] = f
	}
	return c
}

// Lookup returns the factor for id. Unknown IDs report false; records may
// carry IDs from an older catalog and those contribute nothing.
func (c *Catalog) Lookup(id string) (RiskFactor, bool) {
	f, ok := c.byID[id]
	return f, ok
}

// Points returns the point value of id, or 0 when id is unknown.
func (c *Catalog) Points(id string) int {
	return c.byID[id].Points
}

// Factors returns every factor in declaration order.
func (c *Catalog) Factors() []RiskFactor {
	out := make([]RiskFactor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// ByGroup returns the factors of group g in declaration order.
func (c *Catalog) ByGroup(g Group) []RiskFactor {
	var out []RiskFactor
	for _, id := range c.order {
		if f := c.byID[id]; f.Group == g {
			out = append(out, f)
		}
	}
	return out
}

// Unknown returns the IDs in ids that are not in the catalog, sorted.
func (c *Catalog) Unknown(ids []string) []string {
	var out []string
	for _, id := range NewScreeningProfile(ids...).FactorIDs {
		if _, ok := c.byID[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Risk factor IDs of the default catalog. These are stored on patient
// records and must stay stable.
const (
	FactorTooYoung        = "PR_TOO_YOUNG"
	FactorTooOld          = "PR_TOO_OLD"
	FactorSlowToConceive  = "PR_SLOW"
	FactorLongInterval    = "PR_LONG"
	FactorTooSoon         = "PR_TOO_SOON"
	FactorManyChildren    = "PR_MANY_CHILDREN"
	FactorTooOldMulti     = "PR_TOO_OLD_MULTI"
	FactorShortStature    = "PR_SHORT"
	FactorPriorLoss       = "PR_HISTORY_FAIL"
	FactorAssistedBirth   = "PR_CS_HISTORY"
	FactorMaternalDisease = "AGO_DISEASE"
	FactorPreEclampsia    = "AGO_PRE_ECLAMPSIA"
	FactorTwins           = "AGO_TWINS"
	FactorHydramnios      = "AGO_HYDRAMNIOS"
	FactorFetalDeath      = "AGO_DEAD_BABY"
	FactorPostTerm        = "AGO_OVERDUE"
	FactorBreech          = "AGO_BREECH"
	FactorTransverse      = "AGO_TRANSVERSE"
	FactorPriorCesarean   = "AGO_HISTORY_CS"
	FactorBleeding        = "AGDO_BLEEDING"
	FactorEclampsia       = "AGDO_ECLAMPSIA"
)

// defaultFactors is the screening table used by clinics. Group III factors
// are worth 10 so that base + any one of them reaches RedThreshold. Prior
// cesarean is worth 8 so that it plus any other factor reaches RedThreshold.
var defaultFactors = []RiskFactor{
	{ID: FactorTooYoung, Label: "First pregnancy at age 16 or younger", Short: "Young primigravida", Points: 4, Group: GroupI},
	{ID: FactorTooOld, Label: "First pregnancy at age 35 or older", Short: "Elderly primigravida", Points: 4, Group: GroupI},
	{ID: FactorSlowToConceive, Label: "First pregnancy after 4 or more years of marriage", Short: "Secondary elderly primigravida", Points: 4, Group: GroupI},
	{ID: FactorLongInterval, Label: "10 years or more since the last pregnancy", Short: "Youngest child over 10y", Points: 4, Group: GroupI},
	{ID: FactorTooSoon, Label: "2 years or less since the last pregnancy", Short: "Youngest child under 2y", Points: 4, Group: GroupI},
	{ID: FactorManyChildren, Label: "4 or more children", Short: "Grand multipara", Points: 4, Group: GroupI},
	{ID: FactorTooOldMulti, Label: "Age 35 or older", Short: "Elderly multigravida", Points: 4, Group: GroupI},
	{ID: FactorShortStature, Label: "Height 145 cm or less", Short: "Height under 145cm", Points: 4, Group: GroupI},
	{ID: FactorPriorLoss, Label: "Previous pregnancy loss or miscarriage", Short: "History of abortion", Points: 4, Group: GroupI},
	{ID: FactorAssistedBirth, Label: "Previous forceps or vacuum delivery", Short: "History of difficult labor", Points: 4, Group: GroupI},
	{ID: FactorMaternalDisease, Label: "Maternal disease (anemia, malaria, TB, heart failure, diabetes, STI)", Short: "Maternal disease", Points: 4, Group: GroupII},
	{ID: FactorPreEclampsia, Label: "Facial or leg swelling with high blood pressure", Short: "Mild pre-eclampsia", Points: 4, Group: GroupII},
	{ID: FactorTwins, Label: "Twin or higher-order pregnancy", Short: "Multiple gestation", Points: 4, Group: GroupII},
	{ID: FactorHydramnios, Label: "Excess amniotic fluid (hydramnios)", Short: "Hydramnios", Points: 4, Group: GroupII},
	{ID: FactorFetalDeath, Label: "Intrauterine fetal death", Short: "IUFD", Points: 4, Group: GroupII},
	{ID: FactorPostTerm, Label: "Pregnancy beyond 42 weeks", Short: "Post-date", Points: 4, Group: GroupII},
	{ID: FactorBreech, Label: "Breech presentation", Short: "Breech", Points: 4, Group: GroupII},
	{ID: FactorTransverse, Label: "Transverse lie", Short: "Transverse", Points: 4, Group: GroupII},
	{ID: FactorPriorCesarean, Label: "Previous cesarean section", Short: "Prior C-section", Points: 8, Group: GroupII},
	{ID: FactorBleeding, Label: "Bleeding during pregnancy (antepartum hemorrhage)", Short: "Bleeding", Points: 10, Group: GroupIII},
	{ID: FactorEclampsia, Label: "Seizures (eclampsia)", Short: "Eclampsia", Points: 10, Group: GroupIII},
}

var defaultCatalog = NewCatalog(defaultFactors...)

// DefaultCatalog returns the shared clinic screening catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
