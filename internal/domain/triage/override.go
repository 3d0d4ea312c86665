package triage

import (
	"math"
	"strconv"
	"strings"
)

// FetalMovement is the fetal movement observation recorded at a visit.
type FetalMovement string

const (
	MovementNormal  FetalMovement = "Normal"
	MovementReduced FetalMovement = "Reduced"
	MovementAbsent  FetalMovement = "Absent"
)

// ParseFetalMovement maps a recorded observation onto the enum. Legacy
// clinic vocabulary is accepted; anything unrecognised is Normal.
func ParseFetalMovement(s string) FetalMovement {
	switch normalizeSign(s) {
	case "absent", "none", "tidakada":
		return MovementAbsent
	case "reduced", "decreased", "kurangaktif":
		return MovementReduced
	default:
		return MovementNormal
	}
}

// VisitVitals is the clinical snapshot of one completed antenatal visit.
type VisitVitals struct {
	BloodPressure  string        `json:"blood_pressure"`
	FetalHeartRate int           `json:"fetal_heart_rate"`
	DangerSigns    []string      `json:"danger_signs"`
	FetalMovement  FetalMovement `json:"fetal_movement"`
}

// Signal names an acute finding that forces BLACK regardless of score.
type Signal string

const (
	SignalSevereHypertension  Signal = "severe_hypertension"
	SignalDangerSign          Signal = "danger_sign"
	SignalAbsentFetalMovement Signal = "absent_fetal_movement"
	SignalFetalHeartRate      Signal = "abnormal_fetal_heart_rate"
)

const (
	severeSystolic  = 160
	severeDiastolic = 110
	// implausibleBP marks a reading as a typing error rather than a finding.
	implausibleBP = 500
	minFetalHR    = 100
	maxFetalHR    = 180
)

// Canonical critical danger signs.
const (
	DangerBleeding            = "Bleeding"
	DangerRupturedMembranes   = "RupturedMembranes"
	DangerConvulsions         = "Convulsions"
	DangerSevereHeadache      = "SevereHeadache"
	DangerSevereAbdominalPain = "SevereAbdominalPain"
)

// criticalSigns maps normalized sign text to its canonical name. The
// legacy entries keep visits recorded with the clinic's original form
// vocabulary classifiable.
var criticalSigns = map[string]string{
	"bleeding":            DangerBleeding,
	"rupturedmembranes":   DangerRupturedMembranes,
	"convulsions":         DangerConvulsions,
	"severeheadache":      DangerSevereHeadache,
	"severeabdominalpain": DangerSevereAbdominalPain,
	"perdarahan":          DangerBleeding,
	"ketubanpecah":        DangerRupturedMembranes,
	"kejang":              DangerConvulsions,
	"pusinghebat":         DangerSevereHeadache,
	"nyeriperuthebat":     DangerSevereAbdominalPain,
}

func normalizeSign(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CriticalSign returns the canonical name of s when it is a critical
// danger sign.
func CriticalSign(s string) (string, bool) {
	name, ok := criticalSigns[normalizeSign(s)]
	return name, ok
}

// ParseBloodPressure reads a "systolic/diastolic" string. Decimal readings
// such as "165.0" are truncated to whole mmHg. Any component that is
// missing, non-numeric, negative or implausibly large reads as 0, so a
// malformed reading never triggers an override on its own.
func ParseBloodPressure(s string) (systolic, diastolic int) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	systolic = parseBPComponent(parts[0])
	if len(parts) > 1 {
		diastolic = parseBPComponent(parts[1])
	}
	return systolic, diastolic
}

func parseBPComponent(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= implausibleBP {
		return 0
	}
	return int(f)
}

// Signals returns every acute finding present in v, in precedence order.
// Nil vitals have no findings.
func Signals(v *VisitVitals) []Signal {
	if v == nil {
		return nil
	}
	var out []Signal
	if sys, dia := ParseBloodPressure(v.BloodPressure); sys >= severeSystolic || dia >= severeDiastolic {
		out = append(out, SignalSevereHypertension)
	}
	for _, s := range v.DangerSigns {
		if _, ok := CriticalSign(s); ok {
			out = append(out, SignalDangerSign)
			break
		}
	}
	if ParseFetalMovement(string(v.FetalMovement)) == MovementAbsent {
		out = append(out, SignalAbsentFetalMovement)
	}
	if hr := v.FetalHeartRate; hr != 0 && (hr < minFetalHR || hr > maxFetalHR) {
		out = append(out, SignalFetalHeartRate)
	}
	return out
}

// IsOverride reports whether v is an immediate-danger presentation. It
// does not look at the screening score.
func IsOverride(v *VisitVitals) bool {
	return len(Signals(v)) > 0
}
