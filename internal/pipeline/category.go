package pipeline

import "strings"

// Report categories derived after a run completes.
const (
	CategoryCorruption    = "CORRUPTION"
	CategoryFraud         = "FRAUD"
	CategoryGratification = "GRATIFICATION"
	CategoryProcurement   = "PROCUREMENT"
	CategoryDataBreach    = "DATA_BREACH"
	CategoryEthics        = "ETHICS"
	CategoryMisconduct    = "MISCONDUCT"
	CategoryOther         = "OTHER"
)

// Handling priorities derived from severity and fraud score.
const (
	PriorityImmediate = "P1 - Immediate"
	PriorityUrgent    = "P2 - Urgent"
	PriorityNormal    = "P3 - Normal"
	PriorityLow       = "P4 - Low"
)

// categoryKeywords is checked in order; the first bucket with a keyword
// hit wins, so more specific categories come before generic ones.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryCorruption, []string{"corruption", "bribe", "bribery", "kickback"}},
	{CategoryFraud, []string{"fraud", "embezzle", "falsif", "fictitious"}},
	{CategoryGratification, []string{"gratification", "gratuity", "gift"}},
	{CategoryProcurement, []string{"procurement", "tender", "bid rigging"}},
	{CategoryDataBreach, []string{"data leak", "data breach", "confidential"}},
	{CategoryEthics, []string{"ethic", "harassment", "conflict of interest"}},
	{CategoryMisconduct, []string{"misconduct", "discipline", "absent"}},
}

// DeriveCategory prefers the compliance stage's primary category and
// falls back to keyword matching over the intake violation description.
func DeriveCategory(compliancePrimary, violationText string) string {
	if c := strings.ToUpper(strings.TrimSpace(compliancePrimary)); c != "" && c != CategoryOther {
		return c
	}

	text := strings.ToLower(violationText)
	for _, bucket := range categoryKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(text, kw) {
				return bucket.category
			}
		}
	}
	return CategoryOther
}

// CalculatePriority maps severity to a handling priority. A fraud score
// of 0.8 or higher promotes MEDIUM and LOW reports to P2 regardless of
// their severity tier.
func CalculatePriority(severity string, fraudScore float64) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return PriorityImmediate
	case "HIGH":
		return PriorityUrgent
	case "MEDIUM":
		if fraudScore >= 0.8 {
			return PriorityUrgent
		}
		return PriorityNormal
	default:
		if fraudScore >= 0.8 {
			return PriorityUrgent
		}
		return PriorityLow
	}
}
