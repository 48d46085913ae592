package detect

// action.go - action axis classifier. Zero-shot over the closed action set
// with the hypothesis "The user wants to {}.". Computationally independent
// of the domain axis, so the orchestrator fans the two out in parallel.

import (
	"context"
	"log"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// ActionClassifier classifies what the user is asking the assistant to do.
type ActionClassifier struct {
	backend *zeroShotBackend
}

// NewActionClassifier initializes the action axis backend. It shares the
// zero-shot NLI model with the category classifier but runs its own
// pipeline with action hypotheses.
func NewActionClassifier(cfg ZeroShotConfig) (*ActionClassifier, error) {
	byLabel := make(map[string]string, len(taxonomy.ActionDescriptions))
	for action, desc := range taxonomy.ActionDescriptions {
		byLabel[desc] = string(action)
	}

	backend, err := newZeroShotBackend(cfg, "action-zeroshot", "The user wants to {}.", byLabel)
	if err != nil {
		return nil, err
	}
	return &ActionClassifier{backend: backend}, nil
}

// NewActionClassifierWithFallback degrades to neutral signals when the
// model is unavailable.
func NewActionClassifierWithFallback(cfg ZeroShotConfig) *ActionClassifier {
	c, err := NewActionClassifier(cfg)
	if err != nil {
		log.Printf("WARNING: action classifier unavailable (graceful degradation): %v", err)
		return &ActionClassifier{}
	}
	return c
}

func (c *ActionClassifier) Name() SignalSource { return SignalSourceAction }

func (c *ActionClassifier) Load(ctx context.Context) error { return nil }

func (c *ActionClassifier) IsReady() bool { return c.backend.isReady() }

// Detect returns the best action with its score as the axis confidence.
// An unavailable backend yields a neutral signal with score 0, which the
// fail-closed confidence gate downstream treats as uncertainty.
func (c *ActionClassifier) Detect(ctx context.Context, text string) Signal {
	start := time.Now()
	sig := NewSignal(SignalSourceAction)

	if !c.IsReady() {
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	ranked, err := c.backend.classify(ctx, text)
	if err != nil || len(ranked) == 0 {
		if err != nil {
			log.Printf("action classify failed (neutral signal): %v", err)
		}
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	sig.Detected = true
	sig.Category = ranked[0].Label
	sig.Score = clamp01(ranked[0].Score)
	if len(ranked) > 1 {
		sig.Uncertainty = clamp01(1.0 - (ranked[0].Score - ranked[1].Score))
	}

	scores := make(map[string]interface{}, len(ranked))
	for _, ls := range ranked {
		scores[ls.Label] = ls.Score
	}
	sig.SetMetadata("action_scores", scores)

	sig.LatencyMs = timeSinceMs(start)
	return sig
}
