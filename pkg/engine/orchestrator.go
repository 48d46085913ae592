package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
	"github.com/google/uuid"
)

// skipZeroShotAbove: a semantic match this strong makes the zero-shot
// pass redundant; the orchestrator skips it to save inference latency.
const skipZeroShotAbove = 0.94

// Request is one classification request entering the pipeline.
type Request struct {
	Text string `json:"text"`
	Role string `json:"role,omitempty"`
}

// Trace records how the decision was reached, returned when the caller
// asks for debug output.
type Trace struct {
	Signals         []detect.Signal     `json:"signals"`
	Candidates      []RankedCandidate   `json:"candidates,omitempty"`
	RegexTriggered  bool                `json:"regex_triggered"`
	DominantLayer   detect.SignalSource `json:"dominant_layer"`
	ShortCircuited  bool                `json:"short_circuited"`
	ZeroShotSkipped bool                `json:"zeroshot_skipped"`
}

// Result is the pipeline's terminal output for one request.
type Result struct {
	RequestID  string         `json:"request_id"`
	Assessment RiskAssessment `json:"assessment"`
	Decision   PolicyDecision `json:"decision"`

	Action           taxonomy.Action `json:"action,omitempty"`
	ActionConfidence float64         `json:"action_confidence,omitempty"`
	Domain           taxonomy.Domain `json:"domain,omitempty"`
	DomainConfidence float64         `json:"domain_confidence,omitempty"`

	LatencyMs float64 `json:"latency_ms"`
	Trace     Trace   `json:"trace"`
}

// Pipeline orchestrates the signal sources, the fusion engine and the
// policy evaluator. Safe for concurrent use: per-request state lives on
// the stack, the adapters guard their own backends.
type Pipeline struct {
	override detect.Source
	booster  detect.Source
	semantic detect.Source
	zeroShot detect.Source
	action   detect.Source
	domain   detect.Source

	fusion    *FusionEngine
	evaluator *Evaluator
}

// NewPipeline wires the sources to the decision core. Nil fusion or
// evaluator get defaults.
func NewPipeline(override, booster, semantic, zeroShot, action, domain detect.Source, fusion *FusionEngine, evaluator *Evaluator) *Pipeline {
	if fusion == nil {
		fusion = NewFusionEngine(Weights{}, FusionThresholds{})
	}
	if evaluator == nil {
		evaluator = NewEvaluator(nil, PolicyThresholds{})
	}
	return &Pipeline{
		override:  override,
		booster:   booster,
		semantic:  semantic,
		zeroShot:  zeroShot,
		action:    action,
		domain:    domain,
		fusion:    fusion,
		evaluator: evaluator,
	}
}

// Load initializes every source. A source that fails to load is logged
// and left not-ready; the pipeline degrades rather than refusing to start.
func (p *Pipeline) Load(ctx context.Context) {
	for _, src := range p.sources() {
		if src == nil {
			continue
		}
		if err := src.Load(ctx); err != nil {
			log.Printf("○ %s source disabled: %v", src.Name(), err)
			continue
		}
		if src.IsReady() {
			log.Printf("✓ %s source enabled", src.Name())
		} else {
			log.Printf("○ %s source disabled", src.Name())
		}
	}
}

func (p *Pipeline) sources() []detect.Source {
	return []detect.Source{p.override, p.booster, p.semantic, p.zeroShot, p.action, p.domain}
}

// Classify runs one request through the full pipeline. Deterministic for
// a fixed input and configuration: the override layer runs first and
// short-circuits on a hit, the model-backed sources fan out in parallel,
// and fusion waits for all of them before combining.
func (p *Pipeline) Classify(ctx context.Context, req Request) Result {
	start := time.Now()
	res := Result{RequestID: uuid.New().String()}

	// Deterministic layer first, synchronously. A hit is terminal: no
	// model inference, no axis classification, maximum risk.
	ovSig := p.detect(ctx, p.override, detect.SignalSourceOverride, req.Text)
	if ovSig.Detected {
		res.Assessment = p.fusion.Fuse([]detect.Signal{ovSig})
		res.Decision = p.evaluator.Evaluate(PolicyInput{
			Role:               req.Role,
			RiskScore:          res.Assessment.RiskScore,
			RiskSignals:        res.Assessment.RiskSignals,
			FallbackConfidence: res.Assessment.Confidence,
		})
		res.Trace = Trace{
			Signals:        []detect.Signal{ovSig},
			RegexTriggered: true,
			DominantLayer:  detect.SignalSourceOverride,
			ShortCircuited: true,
		}
		res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		return res
	}

	// Lexical booster is cheap; run it inline.
	boostSig := p.detect(ctx, p.booster, detect.SignalSourceBooster, req.Text)

	// Model-backed sources fan out. Semantic gates zero-shot within one
	// goroutine; the axis classifiers are independent.
	var (
		wg              sync.WaitGroup
		semSig, zsSig   detect.Signal
		actSig, domSig  detect.Signal
		zeroShotSkipped bool
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		semSig = p.detect(ctx, p.semantic, detect.SignalSourceSemantic, req.Text)
		if semSig.Detected && semSig.Score > skipZeroShotAbove {
			zeroShotSkipped = true
			zsSig = detect.NewSignal(detect.SignalSourceZeroShot)
			return
		}
		zsSig = p.detect(ctx, p.zeroShot, detect.SignalSourceZeroShot, req.Text)
	}()
	go func() {
		defer wg.Done()
		actSig = p.detect(ctx, p.action, detect.SignalSourceAction, req.Text)
	}()
	go func() {
		defer wg.Done()
		domSig = p.detect(ctx, p.domain, detect.SignalSourceDomain, req.Text)
	}()
	wg.Wait()

	signals := []detect.Signal{ovSig, boostSig, semSig, zsSig, actSig, domSig}
	res.Assessment = p.fusion.Fuse(signals)

	in := PolicyInput{
		Role:               req.Role,
		RiskScore:          res.Assessment.RiskScore,
		RiskSignals:        res.Assessment.RiskSignals,
		FallbackConfidence: res.Assessment.Confidence,
	}
	if actSig.Detected {
		res.Action = taxonomy.Action(actSig.Category)
		res.ActionConfidence = actSig.Score
		in.Action = res.Action
		in.ActionConfidence = actSig.Score
		in.ActionDetected = true
	}
	if domSig.Detected {
		res.Domain = taxonomy.Domain(domSig.Category)
		res.DomainConfidence = domSig.Score
		in.Domain = res.Domain
		in.DomainConfidence = domSig.Score
		in.DomainDetected = true
	}
	res.Decision = p.evaluator.Evaluate(in)

	_, ranked := Resolve(categoryCandidates(signals))
	res.Trace = Trace{
		Signals:         signals,
		Candidates:      ranked,
		DominantLayer:   dominantLayer(res.Assessment, signals),
		ZeroShotSkipped: zeroShotSkipped,
	}
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	return res
}

// detect runs one source, substituting a neutral signal when the source
// is absent or not ready.
func (p *Pipeline) detect(ctx context.Context, src detect.Source, name detect.SignalSource, text string) detect.Signal {
	if src == nil {
		return detect.NewSignal(name)
	}
	return src.Detect(ctx, text)
}

// categoryCandidates collects the detected category proposals for the
// trace's ranked candidate list.
func categoryCandidates(signals []detect.Signal) []Candidate {
	var out []Candidate
	for _, s := range signals {
		switch s.Source {
		case detect.SignalSourceZeroShot, detect.SignalSourceSemantic, detect.SignalSourceBooster:
			if s.Detected && s.Category != "" {
				out = append(out, Candidate{
					Source:   s.Source,
					Category: taxonomy.Category(s.Category),
					Score:    s.Score,
				})
			}
		}
	}
	return out
}

// dominantLayer names the layer whose label became the primary category.
// Precedence mirrors fusion: override, then zero-shot, semantic, booster.
func dominantLayer(ra RiskAssessment, signals []detect.Signal) detect.SignalSource {
	if ra.Overridden {
		return detect.SignalSourceOverride
	}
	order := []detect.SignalSource{
		detect.SignalSourceZeroShot,
		detect.SignalSourceSemantic,
		detect.SignalSourceBooster,
	}
	bySource := make(map[detect.SignalSource]detect.Signal, len(signals))
	for _, s := range signals {
		bySource[s.Source] = s
	}
	for _, src := range order {
		if s, ok := bySource[src]; ok && s.Detected && taxonomy.Category(s.Category) == ra.PrimaryCategory {
			return src
		}
	}
	return detect.SignalSourceZeroShot
}
