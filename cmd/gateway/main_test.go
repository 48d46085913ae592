package main

import (
	"testing"

	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/engine"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

func TestFlattenPrefersMessages(t *testing.T) {
	req := ClassifyRequest{
		Text: "ignored when messages present",
		Messages: []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi, how can I help"},
			{Role: "user", Content: "summarize this contract"},
		},
	}
	want := "user: hello\nassistant: hi, how can I help\nuser: summarize this contract"
	if got := req.flatten(); got != want {
		t.Fatalf("flatten = %q, want %q", got, want)
	}
}

func TestFlattenTrimsPlainText(t *testing.T) {
	req := ClassifyRequest{Text: "  hello  "}
	if got := req.flatten(); got != "hello" {
		t.Fatalf("flatten = %q", got)
	}

	if (&ClassifyRequest{}).flatten() != "" {
		t.Fatalf("empty request must flatten to empty text")
	}
}

func TestToResponseOmitsTraceUnlessDebug(t *testing.T) {
	res := engine.Result{
		RequestID: "r1",
		Assessment: engine.RiskAssessment{
			PrimaryCategory: taxonomy.CategoryGreeting,
			Confidence:      0.9,
			RiskScore:       0.09,
			Tier:            taxonomy.TierLow,
		},
		Decision: engine.PolicyDecision{Decision: engine.DecisionAllow, Reason: "no gate triggered"},
		Trace: engine.Trace{
			Signals:       []detect.Signal{detect.NewSignal(detect.SignalSourceZeroShot)},
			DominantLayer: detect.SignalSourceZeroShot,
		},
	}

	plain := toResponse(res, false)
	if plain.Trace != nil {
		t.Fatalf("trace must be omitted without debug")
	}
	if plain.Decision != "allow" || plain.Category != string(taxonomy.CategoryGreeting) {
		t.Fatalf("response mapping broken: %+v", plain)
	}

	debug := toResponse(res, true)
	if debug.Trace == nil || len(debug.Trace.Signals) != 1 {
		t.Fatalf("debug response must carry the trace")
	}
}
