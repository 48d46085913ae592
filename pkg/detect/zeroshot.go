package detect

// zeroshot.go - hypothesis-based zero-shot classification over the category
// label set via Hugot/ONNX. The most discriminative signal source and the
// most expensive one; the orchestrator may skip it when the semantic
// matcher is already near-certain.

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
	"github.com/knights-analytics/hugot"
	backends "github.com/knights-analytics/hugot/backends"
	"github.com/knights-analytics/hugot/pipelines"
)

// ZeroShotConfig configures the zero-shot classification backend.
type ZeroShotConfig struct {
	// ModelPath is the local ONNX model directory; downloaded by name
	// when missing.
	ModelPath string

	// ModelName is the HuggingFace NLI model used for zero-shot scoring.
	ModelName string

	// OnnxLibraryPath selects the ONNX Runtime backend when set.
	OnnxLibraryPath string

	// SafetyThreshold is the internal override sub-rule threshold: a
	// high-severity category scoring above it replaces the top label even
	// when outranked (default 0.25).
	SafetyThreshold float64
}

// DefaultZeroShotConfig returns the default zero-shot setup.
func DefaultZeroShotConfig() ZeroShotConfig {
	return ZeroShotConfig{
		ModelName:       "KnightsAnalytics/deberta-v3-base-zeroshot-v1",
		ModelPath:       "./models/zeroshot",
		SafetyThreshold: 0.25,
	}
}

// zeroShotBackend wraps one Hugot zero-shot pipeline behind a label map.
// Shared by the category classifier and the action axis classifier.
type zeroShotBackend struct {
	session  *hugot.Session
	pipeline *pipelines.ZeroShotClassificationPipeline
	byLabel  map[string]string // hypothesis text -> canonical label
	mu       sync.RWMutex
	ready    bool
}

// newZeroShotBackend builds a pipeline scoring the given hypothesis texts.
func newZeroShotBackend(cfg ZeroShotConfig, name, template string, byLabel map[string]string) (*zeroShotBackend, error) {
	session, err := newHugotSession(cfg.OnnxLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modelPath, err := resolveModelPath(cfg.ModelPath, cfg.ModelName)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to resolve zero-shot model: %w", err)
	}

	labels := make([]string, 0, len(byLabel))
	for hypothesis := range byLabel {
		labels = append(labels, hypothesis)
	}

	config := hugot.ZeroShotClassificationConfig{
		ModelPath: modelPath,
		Name:      name,
		Options: []backends.PipelineOption[*pipelines.ZeroShotClassificationPipeline]{
			pipelines.WithHypothesisTemplate(template),
			pipelines.WithLabels(labels),
			pipelines.WithMultilabel(true),
		},
	}

	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to create zero-shot pipeline: %w", err)
	}

	log.Printf("zero-shot pipeline %s initialized (model: %s, %d labels)", name, modelPath, len(labels))
	return &zeroShotBackend{
		session:  session,
		pipeline: pipeline,
		byLabel:  byLabel,
		ready:    true,
	}, nil
}

func (b *zeroShotBackend) isReady() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// labelScore pairs a canonical label with its zero-shot score.
type labelScore struct {
	Label string
	Score float64
}

// classify returns all labels ranked by score, best first.
func (b *zeroShotBackend) classify(ctx context.Context, text string) ([]labelScore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.ready || b.pipeline == nil {
		return nil, fmt.Errorf("zero-shot backend not ready")
	}

	result, err := b.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("zero-shot inference failed: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 {
		return nil, fmt.Errorf("no zero-shot output")
	}

	out := result.ClassificationOutputs[0]
	ranked := make([]labelScore, 0, len(out.SortedValues))
	for _, sv := range out.SortedValues {
		label, ok := b.byLabel[sv.Key]
		if !ok {
			label = sv.Key
		}
		ranked = append(ranked, labelScore{Label: label, Score: float64(sv.Value)})
	}
	return ranked, nil
}

// ZeroShotClassifier scores text against the full category label set using
// the hypothesis "This request is {}.".
type ZeroShotClassifier struct {
	backend         *zeroShotBackend
	cfg             ZeroShotConfig
	safetyThreshold float64
}

// NewZeroShotClassifier initializes the category zero-shot classifier.
func NewZeroShotClassifier(cfg ZeroShotConfig) (*ZeroShotClassifier, error) {
	if cfg.SafetyThreshold == 0 {
		cfg.SafetyThreshold = 0.25
	}

	byLabel := make(map[string]string, len(taxonomy.CategoryDescriptions))
	for cat, desc := range taxonomy.CategoryDescriptions {
		byLabel[desc] = string(cat)
	}

	backend, err := newZeroShotBackend(cfg, "category-zeroshot", "This request is {}.", byLabel)
	if err != nil {
		return nil, err
	}
	return &ZeroShotClassifier{
		backend:         backend,
		cfg:             cfg,
		safetyThreshold: cfg.SafetyThreshold,
	}, nil
}

// NewZeroShotClassifierWithFallback returns a classifier even when the
// model is unavailable (ready=false); Detect then yields neutral signals.
func NewZeroShotClassifierWithFallback(cfg ZeroShotConfig) *ZeroShotClassifier {
	c, err := NewZeroShotClassifier(cfg)
	if err != nil {
		log.Printf("WARNING: zero-shot classifier unavailable (graceful degradation): %v", err)
		st := cfg.SafetyThreshold
		if st == 0 {
			st = 0.25
		}
		return &ZeroShotClassifier{safetyThreshold: st}
	}
	return c
}

func (c *ZeroShotClassifier) Name() SignalSource { return SignalSourceZeroShot }

// Load is a no-op: the pipeline initializes in the constructor so a broken
// model is reported once at startup, not per request.
func (c *ZeroShotClassifier) Load(ctx context.Context) error { return nil }

func (c *ZeroShotClassifier) IsReady() bool { return c.backend.isReady() }

// Detect classifies text over the category set. The safety override
// sub-rule never lets a marginal-but-dangerous category be silently
// outranked by a confident benign one: any critical- or high-tier
// category scoring above the threshold replaces the top label.
func (c *ZeroShotClassifier) Detect(ctx context.Context, text string) Signal {
	start := time.Now()
	sig := NewSignal(SignalSourceZeroShot)

	if !c.IsReady() {
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	ranked, err := c.backend.classify(ctx, text)
	if err != nil || len(ranked) == 0 {
		if err != nil {
			log.Printf("zero-shot classify failed (neutral signal): %v", err)
		}
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	top := ranked[0]

	// Safety override sub-rule.
	for _, ls := range ranked[1:] {
		cat := taxonomy.Category(ls.Label)
		tier := taxonomy.TierOf(cat)
		if ls.Score >= c.safetyThreshold &&
			(tier == taxonomy.TierCritical || tier == taxonomy.TierHigh) &&
			tier.Priority() < taxonomy.TierOf(taxonomy.Category(top.Label)).Priority() {
			sig.AddReason(fmt.Sprintf("safety override: %s at %.2f outranks %s", ls.Label, ls.Score, top.Label))
			sig.SetMetadata("outranked_label", top.Label)
			top = ls
			break
		}
	}

	sig.Detected = true
	sig.Category = top.Label
	sig.Score = clamp01(top.Score)

	scores := make(map[string]interface{}, len(ranked))
	for _, ls := range ranked {
		scores[ls.Label] = ls.Score
	}
	sig.SetMetadata("label_scores", scores)

	sig.LatencyMs = timeSinceMs(start)
	return sig
}
