package engine

import (
	"fmt"

	"github.com/cleargate-ai/cleargate/pkg/scope"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// Decision is the terminal outcome of one policy evaluation.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionBlock     Decision = "block"
	DecisionAmbiguous Decision = "ambiguous"
)

// Rule names reported in blocked_by.
const (
	BlockedByRiskSignal    = "risk_signal"
	BlockedByElevatedRisk  = "elevated_risk"
	BlockedByLowConfidence = "low_confidence"
	BlockedByDomainScope   = "domain_scope"
	BlockedByActionScope   = "action_scope"
)

// PolicyThresholds tune the confidence and risk gates.
type PolicyThresholds struct {
	// LowConfidence: below this the fail-closed gate blocks (default 0.40).
	LowConfidence float64 `yaml:"low_confidence"`

	// HighConfidence: below this (and at or above LowConfidence) the
	// decision is ambiguous (default 0.60).
	HighConfidence float64 `yaml:"high_confidence"`

	// ElevatedRisk: aggregate risk at or above this blocks (default 0.70).
	ElevatedRisk float64 `yaml:"elevated_risk"`
}

// DefaultPolicyThresholds returns the production gate thresholds.
func DefaultPolicyThresholds() PolicyThresholds {
	return PolicyThresholds{
		LowConfidence:  0.40,
		HighConfidence: 0.60,
		ElevatedRisk:   0.70,
	}
}

// PolicyInput is everything the evaluator consumes for one request. Both
// the unified category model and the tri-axis model reduce to this shape.
type PolicyInput struct {
	Role string

	Action           taxonomy.Action
	ActionConfidence float64
	ActionDetected   bool

	Domain           taxonomy.Domain
	DomainConfidence float64
	DomainDetected   bool

	RiskScore   float64
	RiskSignals []taxonomy.RiskSignal

	// FallbackConfidence stands in when neither axis produced a signal
	// (degraded deployments running the unified model only).
	FallbackConfidence float64
}

// PolicyDecision is the terminal output of one evaluation; never mutated.
type PolicyDecision struct {
	Decision  Decision `json:"decision"`
	Reason    string   `json:"reason"`
	BlockedBy string   `json:"blocked_by,omitempty"`
	Ambiguous bool     `json:"ambiguous"`

	// Signals names the triggering risk signals or categories.
	Signals []string `json:"signals,omitempty"`

	// MinConfidence is the confidence value the gates evaluated.
	MinConfidence float64 `json:"min_confidence"`
}

// Evaluator applies the ordered, deterministic policy rules. Pure and
// side-effect-free: it never mutates shared state.
type Evaluator struct {
	scopes     *scope.Table
	thresholds PolicyThresholds
}

// NewEvaluator builds the evaluator; nil scopes and zero thresholds get
// defaults.
func NewEvaluator(scopes *scope.Table, t PolicyThresholds) *Evaluator {
	if scopes == nil {
		scopes = scope.DefaultTable()
	}
	if t == (PolicyThresholds{}) {
		t = DefaultPolicyThresholds()
	}
	return &Evaluator{scopes: scopes, thresholds: t}
}

// minConfidence returns the gate confidence: the minimum over the axis
// confidences that are actually present. A missing signal reduces the
// contributing set; it never inflates confidence.
func (e *Evaluator) minConfidence(in PolicyInput) float64 {
	present := false
	min := 1.0
	if in.ActionDetected {
		present = true
		if in.ActionConfidence < min {
			min = in.ActionConfidence
		}
	}
	if in.DomainDetected {
		present = true
		if in.DomainConfidence < min {
			min = in.DomainConfidence
		}
	}
	if !present {
		return in.FallbackConfidence
	}
	return min
}

// Evaluate runs the gates in fixed order. Every block carries a non-empty
// reason naming the triggering rule.
func (e *Evaluator) Evaluate(in PolicyInput) PolicyDecision {
	minConf := e.minConfidence(in)

	// 1. Critical signal gate: non-negotiable, checked first.
	for _, rs := range in.RiskSignals {
		if taxonomy.IsCritical(rs) {
			return PolicyDecision{
				Decision:      DecisionBlock,
				Reason:        fmt.Sprintf("critical risk signal: %s", rs),
				BlockedBy:     BlockedByRiskSignal,
				Signals:       []string{string(rs)},
				MinConfidence: minConf,
			}
		}
	}

	// 2. Elevated non-critical risk gate.
	if in.RiskScore >= e.thresholds.ElevatedRisk {
		d := PolicyDecision{
			Decision:      DecisionBlock,
			Reason:        fmt.Sprintf("aggregate risk %.2f at or above %.2f", in.RiskScore, e.thresholds.ElevatedRisk),
			BlockedBy:     BlockedByElevatedRisk,
			MinConfidence: minConf,
		}
		for _, rs := range in.RiskSignals {
			d.Signals = append(d.Signals, string(rs))
		}
		return d
	}

	// 3. Confidence gate: fail-closed, uncertainty never defaults to allow.
	if minConf < e.thresholds.LowConfidence {
		return PolicyDecision{
			Decision:      DecisionBlock,
			Reason:        fmt.Sprintf("classification confidence %.2f below %.2f", minConf, e.thresholds.LowConfidence),
			BlockedBy:     BlockedByLowConfidence,
			MinConfidence: minConf,
		}
	}

	// 4. Scope gates: empty allow-list means open scope.
	roleScope := e.scopes.Lookup(in.Role)
	if in.DomainDetected && !roleScope.AllowsDomain(in.Domain) {
		return PolicyDecision{
			Decision:      DecisionBlock,
			Reason:        fmt.Sprintf("domain %s outside role %s scope", in.Domain, roleScope.Role),
			BlockedBy:     BlockedByDomainScope,
			Signals:       []string{string(in.Domain)},
			MinConfidence: minConf,
		}
	}
	if in.ActionDetected && !roleScope.AllowsAction(in.Action) {
		return PolicyDecision{
			Decision:      DecisionBlock,
			Reason:        fmt.Sprintf("action %s outside role %s scope", in.Action, roleScope.Role),
			BlockedBy:     BlockedByActionScope,
			Signals:       []string{string(in.Action)},
			MinConfidence: minConf,
		}
	}

	// 5. Ambiguity flag: not a hard block, but callers must apply
	// stricter downstream handling.
	if minConf < e.thresholds.HighConfidence {
		return PolicyDecision{
			Decision:      DecisionAmbiguous,
			Reason:        fmt.Sprintf("classification confidence %.2f in ambiguity zone", minConf),
			Ambiguous:     true,
			MinConfidence: minConf,
		}
	}

	// 6. Allow.
	return PolicyDecision{
		Decision:      DecisionAllow,
		Reason:        "no gate triggered",
		MinConfidence: minConf,
	}
}
