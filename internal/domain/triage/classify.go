// Package triage implements the antenatal risk triage engine: the risk
// factor catalog, screening score, clinical override detection, category
// classification, priority ranking, and gestational age.
//
// Every function in this package is pure. Results are recomputed from the
// inputs on each call and carry no presentation vocabulary; a display
// layer maps ColorToken to actual colors.
package triage

// Category is a triage category.
type Category string

const (
	CategoryBlack  Category = "BLACK"
	CategoryRed    Category = "RED"
	CategoryYellow Category = "YELLOW"
	CategoryGreen  Category = "GREEN"
)

// Categories lists every category from most to least urgent.
var Categories = []Category{CategoryBlack, CategoryRed, CategoryYellow, CategoryGreen}

// Score thresholds of the screening convention.
const (
	RedThreshold    = 12
	YellowThreshold = 6
)

// Result is a triage decision. It is derived and never persisted.
type Result struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	ColorToken  string   `json:"color_token"`
	Score       int      `json:"score"`
	Signals     []Signal `json:"signals,omitempty"`
}

type categoryInfo struct {
	description string
	priority    int
	color       string
}

var categoryTable = map[Category]categoryInfo{
	CategoryBlack:  {"immediate danger, refer now", 0, "triage-black"},
	CategoryRed:    {"very high risk", 1, "triage-red"},
	CategoryYellow: {"high risk", 2, "triage-yellow"},
	CategoryGreen:  {"low risk", 3, "triage-green"},
}

// Priority returns the sort priority of c, 0 being most urgent.
// Unknown categories sort last.
func (c Category) Priority() int {
	if info, ok := categoryTable[c]; ok {
		return info.priority
	}
	return len(categoryTable)
}

// ColorToken returns the symbolic color reference of c.
func (c Category) ColorToken() string {
	return categoryTable[c].color
}

// Urgent reports whether c warrants an emergency alert (RED or BLACK).
func (c Category) Urgent() bool {
	return c == CategoryBlack || c == CategoryRed
}

// Classifier classifies patients against a catalog.
type Classifier struct {
	catalog *Catalog
}

// NewClassifier returns a classifier over cat. A nil cat uses the default catalog.
func NewClassifier(cat *Catalog) *Classifier {
	if cat == nil {
		cat = defaultCatalog
	}
	return &Classifier{catalog: cat}
}

// Catalog returns the catalog the classifier scores against.
func (c *Classifier) Catalog() *Catalog {
	return c.catalog
}

// Classify returns the triage result for a profile and the patient's
// latest visit vitals (nil when no visit exists). Any clinical override
// yields BLACK whatever the score; otherwise the score picks the category.
func (c *Classifier) Classify(p ScreeningProfile, v *VisitVitals) Result {
	score := c.catalog.Score(p.FactorIDs)
	signals := Signals(v)

	var cat Category
	switch {
	case len(signals) > 0:
		cat = CategoryBlack
	case score >= RedThreshold:
		cat = CategoryRed
	case score >= YellowThreshold:
		cat = CategoryYellow
	default:
		cat = CategoryGreen
	}

	info := categoryTable[cat]
	return Result{
		Category:    cat,
		Description: info.description,
		Priority:    info.priority,
		ColorToken:  info.color,
		Score:       score,
		Signals:     signals,
	}
}

var defaultClassifier = NewClassifier(nil)

// Classify classifies against the default catalog.
func Classify(p ScreeningProfile, v *VisitVitals) Result {
	return defaultClassifier.Classify(p, v)
}
