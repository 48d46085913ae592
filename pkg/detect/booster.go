package detect

import (
	"context"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/patterns"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// BoosterDetector is the lexical keyword booster. Its matches are never
// authoritative for category selection: it reports the strongest boost as
// primary and retains the full boost map in metadata for the fusion
// engine to reinforce or contest the zero-shot label.
type BoosterDetector struct {
	registry *patterns.Registry
}

// NewBoosterDetector creates the booster layer over the global registry.
func NewBoosterDetector() *BoosterDetector {
	return &BoosterDetector{registry: patterns.Get()}
}

func (d *BoosterDetector) Name() SignalSource { return SignalSourceBooster }

func (d *BoosterDetector) Load(ctx context.Context) error { return nil }

func (d *BoosterDetector) IsReady() bool { return true }

// Detect accumulates per-category boosts for the text. The strongest
// boosted category is reported as the signal's category; ties break on
// registration order via the stable category list.
func (d *BoosterDetector) Detect(ctx context.Context, text string) Signal {
	start := time.Now()
	sig := NewSignal(SignalSourceBooster)

	boosts := d.registry.MatchBoosters(text)
	if len(boosts) > 0 {
		var best taxonomy.Category
		bestBoost := 0.0
		for _, cat := range taxonomy.AllCategories() {
			if b, ok := boosts[cat]; ok && b > bestBoost {
				best = cat
				bestBoost = b
			}
		}
		sig.Detected = true
		sig.Category = string(best)
		sig.Score = bestBoost

		boostMap := make(map[string]interface{}, len(boosts))
		for cat, b := range boosts {
			boostMap[string(cat)] = b
		}
		sig.SetMetadata("boost_map", boostMap)
		sig.AddReason("lexical boost: " + string(best))
	}

	sig.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	return sig
}

// Boosts exposes the raw per-category boost map for the fusion engine.
func (d *BoosterDetector) Boosts(text string) map[taxonomy.Category]float64 {
	return d.registry.MatchBoosters(text)
}
