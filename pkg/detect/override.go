package detect

import (
	"context"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/patterns"
)

// OverrideDetector is the deterministic pattern layer. It always runs
// first and synchronously: it is the cheapest and most certain signal, and
// a hit short-circuits the rest of the pipeline.
type OverrideDetector struct {
	registry *patterns.Registry
}

// NewOverrideDetector creates the override layer over the global registry.
func NewOverrideDetector() *OverrideDetector {
	return &OverrideDetector{registry: patterns.Get()}
}

func (d *OverrideDetector) Name() SignalSource { return SignalSourceOverride }

// Load is a no-op: patterns compile at package init and cannot fail at
// runtime.
func (d *OverrideDetector) Load(ctx context.Context) error { return nil }

func (d *OverrideDetector) IsReady() bool { return true }

// Detect matches text against the override table. First match wins; a hit
// is terminal with score 1.0.
func (d *OverrideDetector) Detect(ctx context.Context, text string) Signal {
	start := time.Now()
	sig := NewSignal(SignalSourceOverride)

	if p := d.registry.MatchOverride(text); p != nil {
		sig.Detected = true
		sig.Score = 1.0
		sig.Category = string(p.Category)
		sig.AddReason(p.Description)
		sig.SetMetadata("pattern", p.Name)
		sig.SetMetadata("risk_signal", string(p.Signal))
	}

	sig.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	return sig
}
