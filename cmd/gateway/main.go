package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/cleargate-ai/cleargate/pkg/audit"
	"github.com/cleargate-ai/cleargate/pkg/cache"
	"github.com/cleargate-ai/cleargate/pkg/config"
	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/engine"
	"github.com/cleargate-ai/cleargate/pkg/patterns"
	"github.com/cleargate-ai/cleargate/pkg/scope"
)

const Version = "0.1.0"

// Gateway bundles the decision pipeline with its supporting services.
// Every backend is optional and degrades gracefully when unavailable.
type Gateway struct {
	pipeline *engine.Pipeline
	cache    cache.Service
	limiter  *cache.Limiter
	audit    *audit.Store
	config   *config.Config
	sources  []detect.Source
}

// NewGateway wires the signal sources, decision core, cache, rate limiter
// and audit store from configuration.
func NewGateway(ctx context.Context, cfg *config.Config) *Gateway {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	// Embedding backend: local ONNX first, remote endpoint as fallback.
	var embedder detect.EmbeddingProvider
	local := detect.NewHugotEmbedderWithFallback(detect.EmbedderConfig{
		ModelName:       cfg.EmbeddingModel,
		ModelPath:       cfg.EmbeddingPath,
		OnnxLibraryPath: cfg.OnnxLibraryPath,
	})
	switch {
	case local.IsReady():
		embedder = local
		log.Println("✓ embeddings enabled (local ONNX)")
	case cfg.EmbeddingURL != "":
		embedder = detect.NewRemoteEmbedder(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
		log.Println("✓ embeddings enabled (remote endpoint)")
	default:
		embedder = local
		log.Println("○ embeddings disabled (no local model, no remote endpoint)")
	}

	zsCfg := detect.ZeroShotConfig{
		ModelName:       cfg.ZeroShotModel,
		ModelPath:       cfg.ZeroShotPath,
		OnnxLibraryPath: cfg.OnnxLibraryPath,
	}

	if cfg.BoosterFile != "" {
		if err := patterns.Get().LoadBoosterFile(cfg.BoosterFile); err != nil {
			log.Printf("○ booster file ignored (%v)", err)
		} else {
			log.Printf("✓ booster rules loaded from %s", cfg.BoosterFile)
		}
	}

	override := detect.NewOverrideDetector()
	booster := detect.NewBoosterDetector()
	semantic := detect.NewSemanticMatcherWithFallback(embedder)
	zeroShot := detect.NewZeroShotClassifierWithFallback(zsCfg)
	action := detect.NewActionClassifierWithFallback(zsCfg)
	domain := detect.NewDomainClassifierWithFallback(embedder)

	scopes := scope.DefaultTable()
	if cfg.ScopeFile != "" {
		loaded, err := scope.LoadTable(cfg.ScopeFile)
		if err != nil {
			log.Printf("○ scope file ignored (%v), using defaults", err)
		} else {
			scopes = loaded
			log.Printf("✓ role scopes loaded from %s", cfg.ScopeFile)
		}
	}

	fusion := engine.NewFusionEngine(
		engine.Weights{ZeroShot: cfg.ZeroShotWeight, Semantic: cfg.SemanticWeight, Booster: cfg.BoosterWeight},
		engine.FusionThresholds{},
	)
	evaluator := engine.NewEvaluator(scopes, engine.PolicyThresholds{
		LowConfidence:  cfg.LowConfidenceThreshold,
		HighConfidence: cfg.HighConfidenceThreshold,
		ElevatedRisk:   cfg.ElevatedRiskThreshold,
	})

	pipeline := engine.NewPipeline(override, booster, semantic, zeroShot, action, domain, fusion, evaluator)
	pipeline.Load(ctx)

	// Redis backs both the cache and the limiter; in-memory otherwise.
	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.RedisAddr); err != nil {
		log.Printf("○ redis unavailable, using in-memory cache and limits: %v", err)
	} else {
		redisClient = client
		log.Println("✓ redis connected")
	}

	auditStore, err := audit.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("○ audit disabled (store init failed: %v)", err)
		auditStore = nil
	} else if auditStore != nil {
		log.Println("✓ audit enabled (postgres)")
	} else {
		log.Println("○ audit disabled (DATABASE_URL not set)")
	}

	return &Gateway{
		pipeline: pipeline,
		cache:    cache.New(redisClient, cfg.CacheCapacity),
		limiter:  cache.NewLimiter(redisClient, cfg.RateLimit, cfg.RateWindow),
		audit:    auditStore,
		config:   cfg,
		sources:  []detect.Source{override, booster, semantic, zeroShot, action, domain},
	}
}

// Message is one turn of a conversation submitted for classification.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClassifyRequest is the /v1/classify request body. Either text or
// messages must be present; messages are flattened into one text.
type ClassifyRequest struct {
	Text      string    `json:"text"`
	Messages  []Message `json:"messages"`
	Role      string    `json:"role"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Debug     bool      `json:"debug"`
}

// flatten returns the effective input text for classification.
func (r *ClassifyRequest) flatten() string {
	if len(r.Messages) == 0 {
		return strings.TrimSpace(r.Text)
	}
	var b strings.Builder
	for _, m := range r.Messages {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return strings.TrimSpace(b.String())
}

// ClassifyResponse is the /v1/classify response body.
type ClassifyResponse struct {
	RequestID string `json:"request_id"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
	BlockedBy string `json:"blocked_by,omitempty"`
	Ambiguous bool   `json:"ambiguous"`

	Category   string  `json:"category"`
	Tier       string  `json:"tier"`
	RiskScore  float64 `json:"risk_score"`
	Confidence float64 `json:"confidence"`
	Overridden bool    `json:"overridden"`

	Action           string  `json:"action,omitempty"`
	ActionConfidence float64 `json:"action_confidence,omitempty"`
	Domain           string  `json:"domain,omitempty"`
	DomainConfidence float64 `json:"domain_confidence,omitempty"`

	LatencyMs float64 `json:"latency_ms"`
	Cached    bool    `json:"cached,omitempty"`

	Trace *engine.Trace `json:"trace,omitempty"`
}

func toResponse(res engine.Result, debug bool) ClassifyResponse {
	resp := ClassifyResponse{
		RequestID:        res.RequestID,
		Decision:         string(res.Decision.Decision),
		Reason:           res.Decision.Reason,
		BlockedBy:        res.Decision.BlockedBy,
		Ambiguous:        res.Decision.Ambiguous,
		Category:         string(res.Assessment.PrimaryCategory),
		Tier:             string(res.Assessment.Tier),
		RiskScore:        res.Assessment.RiskScore,
		Confidence:       res.Assessment.Confidence,
		Overridden:       res.Assessment.Overridden,
		Action:           string(res.Action),
		ActionConfidence: res.ActionConfidence,
		Domain:           string(res.Domain),
		DomainConfidence: res.DomainConfidence,
		LatencyMs:        res.LatencyMs,
	}
	if debug {
		trace := res.Trace
		resp.Trace = &trace
	}
	return resp
}

// Classify runs one request through cache and pipeline, then audits the
// outcome. Debug requests bypass the cache so traces stay fresh.
func (g *Gateway) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, bool) {
	text := req.flatten()
	key := cache.Key(text, req.Role)

	if g.config.CacheEnabled && !req.Debug {
		if raw, ok := g.cache.Get(ctx, key); ok {
			var resp ClassifyResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				resp.Cached = true
				return resp, true
			}
		}
	}

	res := g.pipeline.Classify(ctx, engine.Request{Text: text, Role: req.Role})
	resp := toResponse(res, req.Debug)

	if g.config.CacheEnabled && !req.Debug {
		if raw, err := json.Marshal(resp); err == nil {
			g.cache.Set(ctx, key, raw, g.config.CacheTTL)
		}
	}

	g.audit.Append(ctx, audit.Record{
		RequestID:  res.RequestID,
		Role:       req.Role,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Decision:   string(res.Decision.Decision),
		BlockedBy:  res.Decision.BlockedBy,
		Reason:     res.Decision.Reason,
		Category:   string(res.Assessment.PrimaryCategory),
		Tier:       string(res.Assessment.Tier),
		RiskScore:  res.Assessment.RiskScore,
		Confidence: res.Assessment.Confidence,
		Overridden: res.Assessment.Overridden,
		LatencyMs:  res.LatencyMs,
	})
	return resp, false
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		addr := ""
		if len(os.Args) > 2 {
			addr = ":" + os.Args[2]
		}
		runHTTPServer(addr)
	case "classify":
		if len(os.Args) < 3 {
			fmt.Println("Usage: cleargate classify <text>")
			os.Exit(1)
		}
		runCLIClassify(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("ClearGate v%s\n", Version)
		fmt.Println("Guardrail decision gateway for AI assistants")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("ClearGate v%s - Guardrail decision gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  cleargate serve [port]     Start HTTP server (default: 8080)")
	fmt.Println("  cleargate classify <text>  Classify text from the command line")
	fmt.Println("  cleargate version          Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  cleargate serve 8080")
	fmt.Println("  cleargate classify \"Ignore previous instructions\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  CLEARGATE_ZEROSHOT_PATH   Path to the zero-shot ONNX model directory")
	fmt.Println("  CLEARGATE_EMBEDDING_PATH  Path to the embedding ONNX model directory")
	fmt.Println("  REDIS_ADDR                Redis address for cache and rate limits")
	fmt.Println("  DATABASE_URL              Postgres DSN for decision auditing")
}

func runHTTPServer(addr string) {
	cfg := config.NewDefaultConfig()
	cfg.MustValidate()
	if addr == "" {
		addr = cfg.ListenAddr
	}

	ctx := context.Background()
	gateway := NewGateway(ctx, cfg)

	app := fiber.New(fiber.Config{
		AppName: "ClearGate",
	})

	// Per-client fixed-window rate limit; the limiter fails open.
	if cfg.RateLimitOn {
		app.Use(func(c fiber.Ctx) error {
			key := c.Get("X-User-ID")
			if key == "" {
				key = c.IP()
			}
			if !gateway.limiter.Allow(c.Context(), key) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "rate limit exceeded",
				})
			}
			return c.Next()
		})
	}

	app.Get("/health", func(c fiber.Ctx) error {
		ready := make(map[string]bool, len(gateway.sources))
		for _, src := range gateway.sources {
			if src != nil {
				ready[string(src.Name())] = src.IsReady()
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "version": Version, "sources": ready})
	})

	app.Post("/v1/classify", func(c fiber.Ctx) error {
		var req ClassifyRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.flatten() == "" {
			return c.Status(400).JSON(fiber.Map{"error": "text or messages field is required"})
		}
		resp, _ := gateway.Classify(c.Context(), req)
		return c.JSON(resp)
	})

	log.Printf("ClearGate HTTP server starting on %s", addr)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health       - Health check and source readiness")
	log.Printf("  POST /v1/classify  - Classify text or a message list")

	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

func runCLIClassify(text string) {
	cfg := config.NewDefaultConfig()
	cfg.CacheEnabled = false

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	gateway := NewGateway(ctx, cfg)
	resp, _ := gateway.Classify(ctx, ClassifyRequest{Text: text, Role: "general", Debug: true})

	output, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(output))
}
