// Package patterns provides the compiled pattern tables backing the
// deterministic override layer and the lexical booster. All regexes are
// compiled once at package init and shared across concurrent requests.
//
// Design principles:
// - COMPILE ONCE: patterns compiled at init, not per-request
// - DRY: single source of truth for override and booster rules
// - ORDERED: override matching is first-match-wins in registration order
package patterns

import (
	"regexp"
	"sync"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// OverridePattern is a high-certainty phrasing that forces a terminal risk
// outcome. Any match is authoritative: score 1.0, no ranking.
type OverridePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Category    taxonomy.Category
	Signal      taxonomy.RiskSignal
	Description string
}

// BoosterRule is a non-authoritative lexical cue. A match contributes a
// small confidence boost toward its category during fusion; it never sets
// the primary label on its own.
type BoosterRule struct {
	Name     string
	Regex    *regexp.Regexp
	Category taxonomy.Category
	Boost    float64 // 0.15-0.35
}

// Registry holds all compiled override patterns and booster rules.
type Registry struct {
	overrides []*OverridePattern
	boosters  []*BoosterRule
	byCat     map[taxonomy.Category][]*BoosterRule
}

var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton).
// Thread-safe and guaranteed to be initialized.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{
		byCat: make(map[taxonomy.Category][]*BoosterRule),
	}

	r.registerInstructionOverrides()
	r.registerSystemOverrides()
	r.registerExfiltrationOverrides()
	r.registerBoosterRules()

	return r
}

// registerOverride compiles and appends an override pattern. Registration
// order matters: matching is first-match-wins.
func (r *Registry) registerOverride(name, pattern string, cat taxonomy.Category, sig taxonomy.RiskSignal, description string) {
	r.overrides = append(r.overrides, &OverridePattern{
		Name:        name,
		Regex:       regexp.MustCompile(pattern),
		Category:    cat,
		Signal:      sig,
		Description: description,
	})
}

// registerBooster compiles and appends a booster rule.
func (r *Registry) registerBooster(name, pattern string, cat taxonomy.Category, boost float64) {
	b := &BoosterRule{
		Name:     name,
		Regex:    regexp.MustCompile(pattern),
		Category: cat,
		Boost:    boost,
	}
	r.boosters = append(r.boosters, b)
	r.byCat[cat] = append(r.byCat[cat], b)
}

// MatchOverride returns the first override pattern matching the text,
// or nil. Optimized for early exit: override hits are rare and terminal.
func (r *Registry) MatchOverride(text string) *OverridePattern {
	for _, p := range r.overrides {
		if p.Regex.MatchString(text) {
			return p
		}
	}
	return nil
}

// MatchBoosters returns the accumulated boost per category for the text.
// Multiple rules for the same category stack, capped at 1.0.
func (r *Registry) MatchBoosters(text string) map[taxonomy.Category]float64 {
	boosts := make(map[taxonomy.Category]float64)
	for _, b := range r.boosters {
		if b.Regex.MatchString(text) {
			v := boosts[b.Category] + b.Boost
			if v > 1.0 {
				v = 1.0
			}
			boosts[b.Category] = v
		}
	}
	return boosts
}

// OverrideCount returns the number of registered override patterns.
func (r *Registry) OverrideCount() int { return len(r.overrides) }

// BoosterCount returns the number of registered booster rules.
func (r *Registry) BoosterCount() int { return len(r.boosters) }

// BoostersFor returns the booster rules registered for a category.
// Returns an empty slice when none exist (never nil).
func (r *Registry) BoostersFor(cat taxonomy.Category) []*BoosterRule {
	if rules, ok := r.byCat[cat]; ok {
		return rules
	}
	return []*BoosterRule{}
}
