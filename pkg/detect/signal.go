// Package detect implements the signal source adapters of the decision
// pipeline: the deterministic override layer, the lexical booster, the
// semantic centroid matcher, the zero-shot classifier, and the independent
// action/domain axis classifiers. Every adapter produces the same Signal
// record and fails open: an unavailable backend yields a neutral,
// non-detecting signal rather than an error.
package detect

import "context"

// SignalSource identifies which detection layer produced a signal.
type SignalSource string

const (
	SignalSourceOverride SignalSource = "override" // deterministic pattern layer
	SignalSourceBooster  SignalSource = "booster"  // lexical keyword booster
	SignalSourceSemantic SignalSource = "semantic" // nearest-centroid embedding matcher
	SignalSourceZeroShot SignalSource = "zeroshot" // hypothesis-based zero-shot classifier
	SignalSourceAction   SignalSource = "action"   // action axis classifier
	SignalSourceDomain   SignalSource = "domain"   // domain axis classifier
)

// Signal is the universal record every detection layer produces for one
// request. Immutable after the adapter returns it.
type Signal struct {
	// Source identifies the producing layer.
	Source SignalSource `json:"source"`

	// Detected is the layer's authoritative verdict. The booster never
	// sets this for category selection; it only carries boosts.
	Detected bool `json:"detected"`

	// Category is the layer's best category, if any.
	Category string `json:"category,omitempty"`

	// Score is the layer's raw score in [0,1].
	Score float64 `json:"score"`

	// Uncertainty in [0,1]; 0 unless the layer measures it. The semantic
	// matcher reports 1-(top1-top2) margin sampling.
	Uncertainty float64 `json:"uncertainty"`

	// Weight is this layer's configurable share in the risk ensemble.
	Weight float64 `json:"weight"`

	// Reasons provides human-readable explanations for the score.
	Reasons []string `json:"reasons,omitempty"`

	// LatencyMs is the time this layer took, in milliseconds.
	LatencyMs float64 `json:"latency_ms"`

	// Metadata carries layer-specific detail (matched pattern, boost map,
	// top-k scores) for traces. Insertion order is preserved by Keys.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// MetadataKeys preserves insertion order for deterministic traces.
	MetadataKeys []string `json:"-"`
}

// NewSignal creates a neutral signal for a source with its default weight.
func NewSignal(source SignalSource) Signal {
	return Signal{
		Source: source,
		Weight: defaultWeight(source),
	}
}

// defaultWeight returns the default ensemble weight per source. Weights of
// the contributing sources sum to below 1.0 so the risk cap is only
// reached through agreement or elevated uncertainty.
func defaultWeight(source SignalSource) float64 {
	switch source {
	case SignalSourceOverride:
		return 1.0
	case SignalSourceZeroShot:
		return 0.6
	case SignalSourceSemantic:
		return 0.3
	case SignalSourceBooster:
		return 0.1
	case SignalSourceAction, SignalSourceDomain:
		return 0.5
	default:
		return 0.5
	}
}

// AddReason appends a reason to the signal.
func (s *Signal) AddReason(reason string) {
	s.Reasons = append(s.Reasons, reason)
}

// SetMetadata sets a metadata key-value pair, preserving insertion order.
func (s *Signal) SetMetadata(key string, value interface{}) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	if _, exists := s.Metadata[key]; !exists {
		s.MetadataKeys = append(s.MetadataKeys, key)
	}
	s.Metadata[key] = value
}

// Clamp bounds Score and Uncertainty to [0,1].
func (s *Signal) Clamp() {
	s.Score = clamp01(s.Score)
	s.Uncertainty = clamp01(s.Uncertainty)
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

// Source is the contract every signal source adapter satisfies.
// Load may fail independently per source; a source that failed to load
// must still return a well-formed neutral signal from Detect.
type Source interface {
	// Name returns the stable source identifier used in traces.
	Name() SignalSource

	// Load initializes the adapter (model download, exemplar embedding).
	// A Load error marks the source not-ready; it never propagates past
	// the orchestrator.
	Load(ctx context.Context) error

	// Detect analyzes text and returns exactly one Signal. Never returns
	// an error: backend failures degrade to a neutral signal.
	Detect(ctx context.Context, text string) Signal

	// IsReady reports whether the adapter's backend initialized.
	IsReady() bool
}
