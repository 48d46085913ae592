package taxonomy

import "testing"

func TestEveryCategoryHasExactlyOneTier(t *testing.T) {
	for _, c := range AllCategories() {
		tier := TierOf(c)
		if tier.Priority() >= 4 {
			t.Fatalf("category %s maps to unknown tier %q", c, tier)
		}
		if _, ok := CategoryDescriptions[c]; !ok {
			t.Fatalf("category %s has no hypothesis description", c)
		}
	}
}

func TestTierOrdering(t *testing.T) {
	if TierCritical.Priority() >= TierHigh.Priority() {
		t.Fatalf("critical must outrank high")
	}
	if TierHigh.Priority() >= TierMedium.Priority() {
		t.Fatalf("high must outrank medium")
	}
	if TierMedium.Priority() >= TierLow.Priority() {
		t.Fatalf("medium must outrank low")
	}
}

func TestTierRiskBaselines(t *testing.T) {
	cases := []struct {
		tier Tier
		want float64
	}{
		{TierCritical, 1.0},
		{TierHigh, 0.8},
		{TierMedium, 0.5},
		{TierLow, 0.1},
	}
	for _, tc := range cases {
		if got := tc.tier.RiskBaseline(); got != tc.want {
			t.Fatalf("baseline for %s: got %f want %f", tc.tier, got, tc.want)
		}
	}
}

func TestRiskRelevance(t *testing.T) {
	if !RiskRelevant(CategoryJailbreak) {
		t.Fatalf("critical-tier category must be risk relevant")
	}
	if RiskRelevant(CategoryGreeting) {
		t.Fatalf("low-tier category must not be risk relevant")
	}
}

func TestCriticalSignalSet(t *testing.T) {
	critical := []RiskSignal{
		RiskInstructionShadowing, RiskRoleManipulation, RiskDataExfiltration,
		RiskSystemOverride, RiskToolRedirection,
	}
	for _, s := range critical {
		if !IsCritical(s) {
			t.Fatalf("signal %s should be critical", s)
		}
	}
	if IsCritical(RiskObfuscation) || IsCritical(RiskContentPolicy) {
		t.Fatalf("non-critical signals misclassified")
	}
}

func TestUnknownTierSortsLast(t *testing.T) {
	if Tier("bogus").Priority() <= TierLow.Priority() {
		t.Fatalf("unknown tier must sort after low")
	}
}
