// Package engine contains the decision core: signal fusion, priority
// resolution, policy evaluation and the pipeline orchestrator. Everything
// here is deterministic and side-effect-free per request; for the same
// input and configuration the engine produces an identical decision on
// every run.
package engine

import (
	"fmt"

	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// Weights are the ensemble shares per contributing source. They must sum
// to at most 1.0 before the uncertainty multiplier so the risk cap is
// only reached through genuine agreement or elevated uncertainty.
type Weights struct {
	ZeroShot float64 `yaml:"zeroshot"`
	Semantic float64 `yaml:"semantic"`
	Booster  float64 `yaml:"booster"`
}

// DefaultWeights returns the production ensemble weights.
func DefaultWeights() Weights {
	return Weights{ZeroShot: 0.6, Semantic: 0.3, Booster: 0.1}
}

// Validate rejects weight sets that could exceed the cap by construction.
func (w Weights) Validate() error {
	sum := w.ZeroShot + w.Semantic + w.Booster
	if sum > 1.0 {
		return fmt.Errorf("ensemble weights sum to %.2f, must be <= 1.0", sum)
	}
	for _, v := range []float64{w.ZeroShot, w.Semantic, w.Booster} {
		if v < 0 {
			return fmt.Errorf("ensemble weights must be non-negative")
		}
	}
	return nil
}

// FusionThresholds tune the cross-signal rules.
type FusionThresholds struct {
	// SemanticReplace: a higher-tier semantic match above this replaces
	// the primary label entirely.
	SemanticReplace float64 `yaml:"semantic_replace"`

	// SemanticRaise: between this and SemanticReplace the semantic score
	// raises the risk via max() without relabeling.
	SemanticRaise float64 `yaml:"semantic_raise"`

	// BoosterOverride: minimum boost for a lexical rule to contest the
	// primary label.
	BoosterOverride float64 `yaml:"booster_override"`

	// BoosterSupport: minimum zero-shot score for a boosted category to
	// count as having non-trivial model support.
	BoosterSupport float64 `yaml:"booster_support"`
}

// DefaultFusionThresholds returns the production thresholds.
func DefaultFusionThresholds() FusionThresholds {
	return FusionThresholds{
		SemanticReplace: 0.75,
		SemanticRaise:   0.60,
		BoosterOverride: 0.20,
		BoosterSupport:  0.05,
	}
}

// RiskAssessment is the aggregate of all signals for one request.
// Constructed once by Fuse and never mutated afterward.
type RiskAssessment struct {
	PrimaryCategory taxonomy.Category `json:"primary_category"`
	Confidence      float64           `json:"confidence"`
	RiskScore       float64           `json:"risk_score"`
	Tier            taxonomy.Tier     `json:"tier"`
	Overridden      bool              `json:"overridden"`

	// RiskSignals names the dangerous mechanisms implied by the fused
	// outcome, consumed by the policy gates.
	RiskSignals []taxonomy.RiskSignal `json:"risk_signals,omitempty"`

	// Signals are the contributing signals in pipeline order.
	Signals []detect.Signal `json:"signals,omitempty"`
}

// FusionEngine combines signal source outputs into one RiskAssessment.
type FusionEngine struct {
	weights    Weights
	thresholds FusionThresholds
}

// NewFusionEngine builds the engine; zero-valued inputs get defaults.
func NewFusionEngine(w Weights, t FusionThresholds) *FusionEngine {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if t == (FusionThresholds{}) {
		t = DefaultFusionThresholds()
	}
	return &FusionEngine{weights: w, thresholds: t}
}

// sourceWeight returns the configured ensemble weight for a source.
func (e *FusionEngine) sourceWeight(s detect.SignalSource) float64 {
	switch s {
	case detect.SignalSourceZeroShot:
		return e.weights.ZeroShot
	case detect.SignalSourceSemantic:
		return e.weights.Semantic
	case detect.SignalSourceBooster:
		return e.weights.Booster
	default:
		return 0
	}
}

// Fuse combines the signals collected for one request. Missing sources
// (skipped by the orchestrator or degraded to neutral) simply do not
// contribute; absence never escalates or de-escalates risk beyond what
// the present signals justify.
func (e *FusionEngine) Fuse(signals []detect.Signal) RiskAssessment {
	bySource := make(map[detect.SignalSource]*detect.Signal, len(signals))
	for i := range signals {
		bySource[signals[i].Source] = &signals[i]
	}

	// 1. Override gate: terminal, no further computation.
	if ov, ok := bySource[detect.SignalSourceOverride]; ok && ov.Detected {
		cat := taxonomy.Category(ov.Category)
		ra := RiskAssessment{
			PrimaryCategory: cat,
			Confidence:      1.0,
			RiskScore:       1.0,
			Tier:            taxonomy.TierOf(cat),
			Overridden:      true,
			Signals:         signals,
		}
		if rs, ok := ov.Metadata["risk_signal"].(string); ok {
			ra.RiskSignals = append(ra.RiskSignals, taxonomy.RiskSignal(rs))
		}
		return ra
	}

	// 2. Weighted ensemble over risk-relevant signals.
	risk := 0.0
	for _, src := range []detect.SignalSource{
		detect.SignalSourceZeroShot,
		detect.SignalSourceSemantic,
		detect.SignalSourceBooster,
	} {
		sig, ok := bySource[src]
		if !ok || !sig.Detected {
			continue
		}
		if !taxonomy.RiskRelevant(taxonomy.Category(sig.Category)) {
			continue
		}
		risk += e.sourceWeight(src) * sig.Score * (1.0 + sig.Uncertainty)
	}
	if risk > 1.0 {
		risk = 1.0
	}

	// 3. Category selection: the zero-shot label is the default primary;
	// the semantic label stands in when zero-shot was skipped.
	primary := taxonomy.CategoryUnknown
	confidence := 0.0
	zs := bySource[detect.SignalSourceZeroShot]
	sem := bySource[detect.SignalSourceSemantic]
	if zs != nil && zs.Detected {
		primary = taxonomy.Category(zs.Category)
		confidence = zs.Score
	} else if sem != nil && sem.Detected {
		primary = taxonomy.Category(sem.Category)
		confidence = sem.Score
	}

	// Booster reinforce-or-override.
	if boost := bySource[detect.SignalSourceBooster]; boost != nil && boost.Detected {
		boosted := taxonomy.Category(boost.Category)
		if boosted == primary {
			confidence = clamp01(confidence + boost.Score)
		} else if boost.Score >= e.thresholds.BoosterOverride {
			support := zeroShotSupport(zs, boosted)
			if support >= e.thresholds.BoosterSupport && support+boost.Score > confidence {
				primary = boosted
				confidence = clamp01(support + boost.Score)
			}
		}
	}

	// 4. Cross-signal safety escalation: a dangerous-but-uncertain
	// secondary signal must never be fully suppressed by a confident
	// benign primary label.
	if sem != nil && sem.Detected {
		semCat := taxonomy.Category(sem.Category)
		if semCat != primary && taxonomy.TierOf(semCat).Priority() < taxonomy.TierOf(primary).Priority() {
			switch {
			case sem.Score > e.thresholds.SemanticReplace:
				primary = semCat
				confidence = sem.Score
				if sem.Score > risk {
					risk = sem.Score
				}
			case sem.Score >= e.thresholds.SemanticRaise:
				if sem.Score > risk {
					risk = sem.Score
				}
			}
		}
	}

	// 5. Tier baseline fallback and clamping.
	tier := taxonomy.TierOf(primary)
	if baseline := tier.RiskBaseline() * confidence; baseline > risk {
		risk = baseline
	}

	ra := RiskAssessment{
		PrimaryCategory: primary,
		Confidence:      clamp01(confidence),
		RiskScore:       clamp01(risk),
		Tier:            tier,
		Signals:         signals,
	}
	// A confidently fused high-severity category implies its risk signal;
	// a marginal one is left to the risk and confidence gates.
	if rs, ok := taxonomy.CategoryRiskSignal[primary]; ok && ra.RiskScore >= 0.5 && ra.Confidence >= 0.5 {
		ra.RiskSignals = append(ra.RiskSignals, rs)
	}
	return ra
}

// zeroShotSupport extracts the zero-shot score for a non-primary category
// from the label score map.
func zeroShotSupport(zs *detect.Signal, cat taxonomy.Category) float64 {
	if zs == nil || zs.Metadata == nil {
		return 0
	}
	scores, ok := zs.Metadata["label_scores"].(map[string]interface{})
	if !ok {
		return 0
	}
	if v, ok := scores[string(cat)].(float64); ok {
		return v
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
