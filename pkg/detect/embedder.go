package detect

// embedder.go - embedding backends for the semantic matcher and the domain
// axis classifier. Two implementations of one contract: a local ONNX
// feature-extraction pipeline via Hugot, and a remote OpenAI-compatible
// embeddings endpoint for deployments without a local model.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cleargate-ai/cleargate/pkg/httputil"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/philippgille/chromem-go"
)

// EmbeddingProvider generates sentence embeddings for similarity matching.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingFunc() chromem.EmbeddingFunc
	IsReady() bool
}

// EmbedderConfig configures the local Hugot embedder.
type EmbedderConfig struct {
	// ModelPath is the local path to the ONNX model directory.
	// If empty and ModelName is set, the model will be downloaded.
	ModelPath string

	// ModelName is the HuggingFace model name used for download when
	// ModelPath is missing.
	ModelName string

	// OnnxLibraryPath is the path to libonnxruntime.so. Empty selects the
	// pure Go backend.
	OnnxLibraryPath string
}

// DefaultEmbedderConfig returns the default local embedding setup
// (MiniLM-L6-v2, ~80MB, works offline once downloaded).
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		ModelName: "sentence-transformers/all-MiniLM-L6-v2",
		ModelPath: "./models/minilm",
	}
}

// HugotEmbedder runs a local feature-extraction pipeline.
type HugotEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.RWMutex
	ready    bool
}

// NewHugotEmbedder initializes the local embedding pipeline.
func NewHugotEmbedder(cfg EmbedderConfig) (*HugotEmbedder, error) {
	e := &HugotEmbedder{}

	session, err := newHugotSession(cfg.OnnxLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modelPath, err := resolveModelPath(cfg.ModelPath, cfg.ModelName)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to resolve embedding model: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "sentence-embedder",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	e.session = session
	e.pipeline = pipeline
	e.ready = true
	log.Printf("embedder initialized (model: %s)", modelPath)
	return e, nil
}

// NewHugotEmbedderWithFallback returns an embedder even if initialization
// fails (ready=false) so callers can degrade gracefully.
func NewHugotEmbedderWithFallback(cfg EmbedderConfig) *HugotEmbedder {
	e, err := NewHugotEmbedder(cfg)
	if err != nil {
		log.Printf("WARNING: embedder initialization failed (graceful degradation): %v", err)
		return &HugotEmbedder{ready: false}
	}
	return e
}

func (e *HugotEmbedder) IsReady() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Embed returns the embedding vector for one text.
func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready || e.pipeline == nil {
		return nil, fmt.Errorf("embedder not ready")
	}

	result, err := e.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embeddings[0], nil
}

// EmbeddingFunc adapts the embedder to chromem's collection contract.
func (e *HugotEmbedder) EmbeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.Embed(ctx, text)
	}
}

// newHugotSession creates the Hugot session, preferring ONNX Runtime and
// falling back to the pure Go backend.
func newHugotSession(onnxLibraryPath string) (*hugot.Session, error) {
	if onnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(onnxLibraryPath))
		if err == nil {
			log.Printf("hugot using ONNX Runtime backend")
			return session, nil
		}
		log.Printf("ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Go session: %w", err)
	}
	return session, nil
}

// resolveModelPath ensures the model is available locally, downloading it
// by name when the configured path is missing.
func resolveModelPath(modelPath, modelName string) (string, error) {
	if modelPath != "" {
		if _, err := os.Stat(modelPath); err == nil {
			return modelPath, nil
		}
	}
	if modelName == "" {
		return "", fmt.Errorf("no model path or name specified")
	}

	modelsDir := "./models"
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	log.Printf("downloading model %s...", modelName)
	downloaded, err := hugot.DownloadModel(modelName, modelsDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloaded, nil
}

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint. Used
// when no local model is available.
type RemoteEmbedder struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	sem     *httputil.Semaphore
}

// remoteEmbedConcurrency bounds in-flight calls to the remote endpoint so
// a burst of requests cannot pile up goroutines behind a slow backend.
const remoteEmbedConcurrency = 8

// NewRemoteEmbedder creates a remote embedder; baseURL must expose an
// OpenAI-compatible embeddings API.
func NewRemoteEmbedder(baseURL, apiKey, model string) *RemoteEmbedder {
	return &RemoteEmbedder{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  httputil.Client(httputil.TierMedium),
		sem:     httputil.NewSemaphore(remoteEmbedConcurrency),
	}
}

func (e *RemoteEmbedder) IsReady() bool { return e.baseURL != "" }

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.sem.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("embedding backlog: %w", err)
	}
	defer e.sem.Release()

	payload, err := json.Marshal(map[string]interface{}{
		"model": e.model,
		"input": []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := httputil.CheckResponse(resp, "remote embedder"); err != nil {
		return nil, err
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Data[0].Embedding, nil
}

// EmbeddingFunc adapts the remote embedder to chromem's contract.
func (e *RemoteEmbedder) EmbeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.Embed(ctx, text)
	}
}

// timeSinceMs is a small helper shared by the adapters in this package.
func timeSinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
