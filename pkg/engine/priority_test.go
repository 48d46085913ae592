package engine

import (
	"testing"

	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

func TestResolveTierBeatsScore(t *testing.T) {
	top, _ := Resolve([]Candidate{
		{Source: detect.SignalSourceZeroShot, Category: taxonomy.CategoryGreeting, Score: 0.9},
		{Source: detect.SignalSourceSemantic, Category: taxonomy.CategoryJailbreak, Score: 0.2},
	})
	if top.Category != taxonomy.CategoryJailbreak {
		t.Fatalf("a weak critical candidate must outrank a strong benign one, got %s", top.Category)
	}
}

func TestResolveScoreBreaksTierTies(t *testing.T) {
	top, ranked := Resolve([]Candidate{
		{Source: detect.SignalSourceZeroShot, Category: taxonomy.CategorySystemControl, Score: 0.4},
		{Source: detect.SignalSourceSemantic, Category: taxonomy.CategoryJailbreak, Score: 0.7},
	})
	if top.Category != taxonomy.CategoryJailbreak {
		t.Fatalf("same tier resolves on score, got %s", top.Category)
	}
	if len(ranked) != 2 || ranked[1].Category != taxonomy.CategorySystemControl {
		t.Fatalf("ranked list must contain every candidate in order")
	}
}

func TestResolveStableOnEqualCandidates(t *testing.T) {
	top, _ := Resolve([]Candidate{
		{Source: detect.SignalSourceZeroShot, Category: taxonomy.CategoryJailbreak, Score: 0.5},
		{Source: detect.SignalSourceSemantic, Category: taxonomy.CategoryExploitCode, Score: 0.5},
	})
	if top.Source != detect.SignalSourceZeroShot {
		t.Fatalf("equal priority and score must keep input order, got %s", top.Source)
	}
}

func TestResolveEmpty(t *testing.T) {
	top, ranked := Resolve(nil)
	if top.Category != taxonomy.CategoryUnknown {
		t.Fatalf("empty input resolves to unknown, got %s", top.Category)
	}
	if len(ranked) != 0 {
		t.Fatalf("ranked list must be empty")
	}
}
