package billing

import "testing"

func TestPlanLabel(t *testing.T) {
	tests := []struct {
		interval string
		count    int64
		want     string
	}{
		{interval: "month", count: 1, want: "monthly"},
		{interval: "month", count: 3, want: "quarterly"},
		{interval: "month", count: 6, want: "biannual"},
		{interval: "month", count: 2, want: "monthly"},
		{interval: "year", count: 1, want: "yearly"},
		{interval: "week", count: 1, want: "weekly"},
		{interval: "day", count: 1, want: "daily"},
		{interval: "MONTH", count: 1, want: "monthly"},
		{interval: " year ", count: 1, want: "yearly"},
		{interval: "fortnight", count: 1, want: "monthly"},
		{interval: "", count: 0, want: "monthly"},
	}

	for _, tt := range tests {
		if got := PlanLabel(tt.interval, tt.count); got != tt.want {
			t.Fatalf("PlanLabel(%q, %d) = %q, want %q", tt.interval, tt.count, got, tt.want)
		}
	}
}

func TestAmountFromCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  float64
	}{
		{cents: 0, want: 0},
		{cents: 2999, want: 29.99},
		{cents: 100, want: 1},
		{cents: 9, want: 0.09},
	}

	for _, tt := range tests {
		if got := AmountFromCents(tt.cents); got != tt.want {
			t.Fatalf("AmountFromCents(%d) = %v, want %v", tt.cents, got, tt.want)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: "active"},
		{in: "ACTIVE", want: "active"},
		{in: " past_due ", want: "past_due"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := normalizeStatus(tt.in); got != tt.want {
			t.Fatalf("normalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
