package billing

import "strings"

// PlanLabel maps a Stripe price interval to the plan label shown on the
// dashboard and forwarded to PromoStack.
func PlanLabel(interval string, intervalCount int64) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "day":
		return "daily"
	case "week":
		return "weekly"
	case "month":
		switch intervalCount {
		case 3:
			return "quarterly"
		case 6:
			return "biannual"
		default:
			return "monthly"
		}
	case "year":
		return "yearly"
	default:
		return "monthly"
	}
}

// AmountFromCents converts a smallest-currency-unit amount to major units.
// Provider amounts cross this boundary exactly once, here.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
