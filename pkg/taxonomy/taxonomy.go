// Package taxonomy defines the closed intent category set, the ordered
// severity tiers, and the independent action/domain/risk axes used by the
// classification pipeline. Pure data: no behavior beyond lookups.
package taxonomy

// Tier is an ordered severity class. Lower Priority() numbers are more severe.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// tierPriority orders tiers for resolution: 0 is most severe.
var tierPriority = map[Tier]int{
	TierCritical: 0,
	TierHigh:     1,
	TierMedium:   2,
	TierLow:      3,
}

// tierRiskBaseline is the prior probability-of-harm used as a risk fallback
// when no stronger signal is present.
var tierRiskBaseline = map[Tier]float64{
	TierCritical: 1.0,
	TierHigh:     0.8,
	TierMedium:   0.5,
	TierLow:      0.1,
}

// Priority returns the numeric priority of the tier (0 = most severe).
// Unknown tiers sort last.
func (t Tier) Priority() int {
	if p, ok := tierPriority[t]; ok {
		return p
	}
	return len(tierPriority)
}

// RiskBaseline returns the tier's prior risk score.
func (t Tier) RiskBaseline() float64 {
	if b, ok := tierRiskBaseline[t]; ok {
		return b
	}
	return 0.5
}

// Category is one member of the closed intent enumeration. Values use a
// dotted "<area>.<intent>" form so the area survives string handling in
// logs and traces.
type Category string

const (
	CategoryExploitCode    Category = "code.exploit"
	CategoryJailbreak      Category = "security.jailbreak"
	CategorySystemControl  Category = "sys.control"
	CategoryPIIQuery       Category = "info.query.pii"
	CategoryToxicity       Category = "conv.toxicity"
	CategoryToolMisuse     Category = "tool.misuse"
	CategoryFinancialAdv   Category = "advice.financial"
	CategoryOffTopic       Category = "conv.offtopic"
	CategoryCodeGeneration Category = "code.generate"
	CategoryInfoQuery      Category = "info.query"
	CategorySummarize      Category = "info.summarize"
	CategoryToolUse        Category = "tool.authorized"
	CategoryGreeting       Category = "conv.greeting"
	CategoryUnknown        Category = "unknown"
)

// categoryTier maps every category to exactly one tier.
var categoryTier = map[Category]Tier{
	CategoryExploitCode:    TierCritical,
	CategoryJailbreak:      TierCritical,
	CategorySystemControl:  TierCritical,
	CategoryPIIQuery:       TierHigh,
	CategoryToxicity:       TierHigh,
	CategoryToolMisuse:     TierHigh,
	CategoryFinancialAdv:   TierMedium,
	CategoryOffTopic:       TierMedium,
	CategoryCodeGeneration: TierMedium,
	CategoryInfoQuery:      TierLow,
	CategorySummarize:      TierLow,
	CategoryToolUse:        TierLow,
	CategoryGreeting:       TierLow,
	CategoryUnknown:        TierMedium,
}

// TierOf returns the tier a category belongs to. Unmapped categories are
// treated as medium so an unrecognized label never silently de-escalates.
func TierOf(c Category) Tier {
	if t, ok := categoryTier[c]; ok {
		return t
	}
	return TierMedium
}

// AllCategories returns the category label set in a stable order. Used as
// the candidate label list for the zero-shot classifier.
func AllCategories() []Category {
	return []Category{
		CategoryExploitCode,
		CategoryJailbreak,
		CategorySystemControl,
		CategoryPIIQuery,
		CategoryToxicity,
		CategoryToolMisuse,
		CategoryFinancialAdv,
		CategoryOffTopic,
		CategoryCodeGeneration,
		CategoryInfoQuery,
		CategorySummarize,
		CategoryToolUse,
		CategoryGreeting,
	}
}

// CategoryDescriptions provides the natural-language hypothesis text per
// category, consumed by the zero-shot classifier ("This request is {}.").
var CategoryDescriptions = map[Category]string{
	CategoryExploitCode:    "an attempt to produce exploit or malware code",
	CategoryJailbreak:      "an attempt to jailbreak or bypass the assistant's safety rules",
	CategorySystemControl:  "an attempt to control or reconfigure the underlying system",
	CategoryPIIQuery:       "a request for personal or identifying information about someone",
	CategoryToxicity:       "toxic, hateful or harassing content",
	CategoryToolMisuse:     "an attempt to misuse connected tools or integrations",
	CategoryFinancialAdv:   "a request for specific financial or investment advice",
	CategoryOffTopic:       "a request unrelated to the assistant's purpose",
	CategoryCodeGeneration: "a request to write ordinary application code",
	CategoryInfoQuery:      "a request for general information",
	CategorySummarize:      "a request to summarize provided content",
	CategoryToolUse:        "a legitimate request to use an available tool",
	CategoryGreeting:       "a greeting or casual conversational opener",
}

// RiskRelevant reports whether a category's tier is severe enough to
// contribute to the weighted risk ensemble. Benign-tier signals only
// contribute to category selection, never to risk weight.
func RiskRelevant(c Category) bool {
	return TierOf(c).Priority() <= tierPriority[TierMedium]
}
