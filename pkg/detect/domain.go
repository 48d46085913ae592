package detect

// domain.go - domain axis classifier. Embedding similarity against domain
// descriptions plus example utterances. Scores two windows of the text
// (full text, latter half) and takes the max per domain, so a request that
// pivots topic mid-sentence still surfaces the dangerous half.

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
	"github.com/philippgille/chromem-go"
)

// domainCompetitionGap is the score gap under which the two best domains
// are considered to be competing; recorded in metadata for the trace.
const domainCompetitionGap = 0.15

// DomainClassifier classifies what subject area a request concerns.
type DomainClassifier struct {
	db         *chromem.DB
	collection *chromem.Collection
	docCount   int
	mu         sync.RWMutex
	ready      bool
}

// NewDomainClassifier creates the domain axis over the embedding backend.
func NewDomainClassifier(embedder EmbeddingProvider) (*DomainClassifier, error) {
	if embedder == nil || !embedder.IsReady() {
		return nil, fmt.Errorf("embedding provider not ready")
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("domain_exemplars", nil, embedder.EmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &DomainClassifier{db: db, collection: collection}, nil
}

// NewDomainClassifierWithFallback degrades to neutral signals when the
// embedding backend is unavailable.
func NewDomainClassifierWithFallback(embedder EmbeddingProvider) *DomainClassifier {
	c, err := NewDomainClassifier(embedder)
	if err != nil {
		log.Printf("WARNING: domain classifier unavailable (graceful degradation): %v", err)
		return &DomainClassifier{ready: false}
	}
	return c
}

func (c *DomainClassifier) Name() SignalSource { return SignalSourceDomain }

// Load embeds the domain descriptions and example utterances.
func (c *DomainClassifier) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection == nil {
		return fmt.Errorf("domain classifier has no collection")
	}

	var docs []chromem.Document
	for _, domain := range taxonomy.AllDomains() {
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("domain-%s-desc", domain),
			Content:  taxonomy.DomainDescriptions[domain],
			Metadata: map[string]string{"domain": string(domain)},
		})
		for i, example := range taxonomy.DomainExamples[domain] {
			docs = append(docs, chromem.Document{
				ID:       fmt.Sprintf("domain-%s-ex%d", domain, i),
				Content:  example,
				Metadata: map[string]string{"domain": string(domain)},
			})
		}
	}

	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to load domain exemplars: %w", err)
	}

	c.docCount = len(docs)
	c.ready = true
	log.Printf("domain classifier loaded %d exemplars", len(docs))
	return nil
}

func (c *DomainClassifier) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// windows returns the scoring windows for the text: always the full text,
// plus the latter half for longer requests.
func windows(text string) []string {
	out := []string{text}
	words := strings.Fields(text)
	if len(words) > 6 {
		out = append(out, strings.Join(words[len(words)/2:], " "))
	}
	return out
}

// Detect scores each window against the exemplar store and takes the max
// similarity per domain across windows.
func (c *DomainClassifier) Detect(ctx context.Context, text string) Signal {
	start := time.Now()
	sig := NewSignal(SignalSourceDomain)

	c.mu.RLock()
	ready := c.ready
	docCount := c.docCount
	c.mu.RUnlock()

	if !ready || text == "" {
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	k := 10
	if docCount < k {
		k = docCount
	}

	best := make(map[string]float64)
	for _, window := range windows(text) {
		results, err := c.collection.Query(ctx, window, k, nil, nil)
		if err != nil {
			log.Printf("domain query failed (neutral signal): %v", err)
			sig.LatencyMs = timeSinceMs(start)
			return sig
		}
		for _, r := range results {
			d := r.Metadata["domain"]
			score := float64(r.Similarity)
			if score > best[d] {
				best[d] = score
			}
		}
	}

	if len(best) == 0 {
		sig.LatencyMs = timeSinceMs(start)
		return sig
	}

	type domScore struct {
		domain string
		score  float64
	}
	ranked := make([]domScore, 0, len(best))
	for d, s := range best {
		ranked = append(ranked, domScore{d, s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].domain < ranked[j].domain
	})

	sig.Detected = true
	sig.Category = ranked[0].domain
	sig.Score = clamp01(ranked[0].score)
	if len(ranked) > 1 {
		sig.Uncertainty = clamp01(1.0 - (ranked[0].score - ranked[1].score))
		if ranked[0].score-ranked[1].score < domainCompetitionGap {
			sig.SetMetadata("domain_competition", ranked[1].domain)
			sig.AddReason(fmt.Sprintf("domain competition: %s vs %s", ranked[0].domain, ranked[1].domain))
		}
	}

	scores := make(map[string]interface{}, len(ranked))
	for _, ds := range ranked {
		scores[ds.domain] = ds.score
	}
	sig.SetMetadata("domain_scores", scores)

	sig.LatencyMs = timeSinceMs(start)
	return sig
}
