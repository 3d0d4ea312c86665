package broadcast

import (
	"net/url"
	"strings"
)

// Placeholders substituted by Render.
const (
	PlaceholderName      = "{name}"
	PlaceholderNextVisit = "{next_visit}"
)

// NextVisitFallback replaces {next_visit} when no date is scheduled.
const NextVisitFallback = "as soon as possible"

// DefaultTemplate returns the stock message for group, signed by clinic.
func DefaultTemplate(group Group, clinic string) string {
	if clinic == "" {
		clinic = "the clinic"
	}
	switch group {
	case GroupRiskHigh:
		return "Hello {name}, this is " + clinic + ". Your last check-up shows your pregnancy needs special attention. Please keep every scheduled visit. Stay healthy!"
	case GroupMissedVisit:
		return "Hello {name}, our records show you missed your antenatal visit on {next_visit}. Please come to " + clinic + " for a check-up soon, for your health and your baby's. Thank you."
	case GroupUpcomingVisit:
		return "Hello {name}, a reminder that TOMORROW ({next_visit}) is your antenatal visit. Please come to " + clinic + " and bring your maternal health book. Thank you."
	default:
		return "Hello {name}, we hope you are well. News from " + clinic + ": ..."
	}
}

// Render fills the placeholders of tpl for r.
func Render(tpl string, r Recipient) string {
	next := NextVisitFallback
	if r.NextVisit != nil {
		next = r.NextVisit.Format("2006-01-02")
	}
	return strings.NewReplacer(PlaceholderName, r.Name, PlaceholderNextVisit, next).Replace(tpl)
}

// NormalizePhone strips everything but digits and rewrites a national
// trunk prefix 0 to country code 62.
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if strings.HasPrefix(digits, "0") {
		digits = "62" + digits[1:]
	}
	return digits
}

// ManualLink returns a click-to-chat link that opens WhatsApp with the
// message prefilled, for clinics without a gateway.
func ManualLink(phone, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + NormalizePhone(phone) + "?text=" + text
}
