package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/mediareport/core/parse"
	"github.com/leofalp/mediareport/providers/observability"
	"github.com/leofalp/mediareport/providers/observability/slogobs"
)

// scriptedGenerator returns its completions in order, repeating the last one.
type scriptedGenerator struct {
	mu          sync.Mutex
	completions []string
	err         error
	calls       int
	lastReq     Request
	deadline    bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, req Request) (Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	g.lastReq = req
	_, g.deadline = ctx.Deadline()
	if g.err != nil {
		return Completion{}, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.completions) {
		idx = len(g.completions) - 1
	}
	return Completion{Text: g.completions[idx], Model: "test-model"}, nil
}

func videoRequest() Request {
	return Request{
		Prompt: "Describe the scenes",
		Media:  []Media{{MIMEType: "video/mp4", Data: []byte("fake video")}},
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("New(nil) error = %v, want ErrNoGenerator", err)
	}

	a, err := New(&scriptedGenerator{completions: []string{"{}"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.cfg.maxAttempts != 1 {
		t.Errorf("default maxAttempts = %d, want 1", a.cfg.maxAttempts)
	}
	if a.cfg.recoverer == nil {
		t.Error("default recoverer is nil")
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		want       any
	}{
		{
			name:       "plain JSON",
			completion: `{"scenes":2}`,
			want:       map[string]any{"scenes": float64(2)},
		},
		{
			name:       "fenced with prose",
			completion: "Sure! Here is the report:\n```json\n{\"scenes\":[\"intro\",\"outro\",]}\n```",
			want:       map[string]any{"scenes": []any{"intro", "outro"}},
		},
		{
			name:       "truncated completion",
			completion: `{"scenes":["intro","outro"`,
			want:       map[string]any{"scenes": []any{"intro", "outro"}},
		},
		{
			name:       "valid but empty",
			completion: `{}`,
			want:       map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{completions: []string{tt.completion}}
			a, err := New(gen)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			res, err := a.Analyze(context.Background(), videoRequest())
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if !reflect.DeepEqual(res.Value, tt.want) {
				t.Errorf("Value = %#v, want %#v", res.Value, tt.want)
			}
			if res.Raw != tt.completion {
				t.Errorf("Raw = %q, want %q", res.Raw, tt.completion)
			}
			if res.Model != "test-model" || res.Attempts != 1 {
				t.Errorf("Model = %q, Attempts = %d", res.Model, res.Attempts)
			}
		})
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no media", Request{Prompt: "x"}},
		{"empty media bytes", Request{Prompt: "x", Media: []Media{{MIMEType: "audio/mpeg"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{completions: []string{"{}"}}
			a, _ := New(gen)
			if _, err := a.Analyze(context.Background(), tt.req); !errors.Is(err, ErrEmptyMedia) {
				t.Errorf("Analyze() error = %v, want ErrEmptyMedia", err)
			}
			if gen.calls != 0 {
				t.Errorf("generator called %d times for an invalid request", gen.calls)
			}
		})
	}
}

func TestAnalyze_UnrecoverableIsNotEmptyReport(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{`I could not watch the video, sorry.`}}
	a, _ := New(gen)

	res, err := a.Analyze(context.Background(), videoRequest())
	if res != nil {
		t.Errorf("Analyze() result = %+v, want nil", res)
	}
	var recErr *parse.RecoveryError
	if !errors.As(err, &recErr) {
		t.Fatalf("Analyze() error = %v, want *parse.RecoveryError", err)
	}
	if !strings.HasPrefix(recErr.Prefix, "I could not watch") {
		t.Errorf("Prefix = %q", recErr.Prefix)
	}
}

func TestAnalyze_Retry(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		completions []string
		wantCalls   int
		wantErr     bool
	}{
		{
			name:        "no retry by default",
			maxAttempts: 0,
			completions: []string{"garbage", `{"ok":true}`},
			wantCalls:   1,
			wantErr:     true,
		},
		{
			name:        "second attempt succeeds",
			maxAttempts: 3,
			completions: []string{"garbage", `{"ok":true}`},
			wantCalls:   2,
		},
		{
			name:        "budget exhausted",
			maxAttempts: 3,
			completions: []string{"garbage"},
			wantCalls:   3,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{completions: tt.completions}
			a, _ := New(gen, WithMaxAttempts(tt.maxAttempts))

			res, err := a.Analyze(context.Background(), videoRequest())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Analyze() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gen.calls != tt.wantCalls {
				t.Errorf("generator calls = %d, want %d", gen.calls, tt.wantCalls)
			}
			if tt.wantErr {
				if !errors.Is(err, parse.ErrUnrecoverable) {
					t.Errorf("error = %v, want ErrUnrecoverable", err)
				}
				return
			}
			if res.Attempts != tt.wantCalls {
				t.Errorf("Attempts = %d, want %d", res.Attempts, tt.wantCalls)
			}
		})
	}
}

func TestAnalyze_GenerationErrorNotRetried(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &scriptedGenerator{err: boom}
	a, _ := New(gen, WithMaxAttempts(5))

	_, err := a.Analyze(context.Background(), videoRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("Analyze() error = %v, want wrapped %v", err, boom)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{"{}"}}

	a, _ := New(gen)
	if _, err := a.Analyze(context.Background(), videoRequest()); err != nil {
		t.Fatal(err)
	}
	if gen.deadline {
		t.Error("generator context has a deadline without WithTimeout")
	}

	a, _ = New(gen, WithTimeout(time.Minute))
	if _, err := a.Analyze(context.Background(), videoRequest()); err != nil {
		t.Fatal(err)
	}
	if !gen.deadline {
		t.Error("generator context has no deadline with WithTimeout")
	}
}

func TestAnalyze_PassesRequestThrough(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{"{}"}}
	a, _ := New(gen)

	req := videoRequest()
	req.Schema = map[string]any{"type": "object"}
	if _, err := a.Analyze(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gen.lastReq, req) {
		t.Errorf("generator got %+v, want %+v", gen.lastReq, req)
	}
}

func TestAnalyze_WithRecoverer(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{`{id: 12345678901234567890}`}}
	a, _ := New(gen, WithRecoverer(parse.New(parse.WithRepair(), parse.WithUseNumber())))

	res, err := a.Analyze(context.Background(), videoRequest())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	m, ok := res.Value.(map[string]any)
	if !ok {
		t.Fatalf("Value type = %T", res.Value)
	}
	if got := m["id"]; got != any(json.Number("12345678901234567890")) {
		t.Errorf("id = %#v", got)
	}
}

func TestAnalyze_Observer(t *testing.T) {
	var buf bytes.Buffer
	obs := slogobs.New(slogobs.WithOutput(&buf), slogobs.WithLevel(slog.LevelDebug), slogobs.WithFormat(slogobs.FormatJSON))

	gen := &scriptedGenerator{completions: []string{"garbage", `{"ok":true}`}}
	a, _ := New(gen, WithObserver(obs), WithMaxAttempts(2))

	if _, err := a.Analyze(context.Background(), videoRequest()); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	logs := buf.String()
	for _, want := range []string{
		"Completion unrecoverable, requesting a new one",
		observability.SpanAnalyze,
		observability.EventAnalyzeRetry,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q:\n%s", want, logs)
		}
	}
	if got := obs.CounterValue(observability.MetricRecoverFailure); got != 1 {
		t.Errorf("recover failures = %d, want 1", got)
	}
	if got := obs.CounterValue(observability.MetricRecoverSuccess); got != 1 {
		t.Errorf("recover successes = %d, want 1", got)
	}
}

type scene struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
}

type sceneReport struct {
	Scenes []scene `json:"scenes"`
}

func TestAnalyzeAs(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{
		"```json\n{\"scenes\":[{\"title\":\"Intro\",\"start\":0},{\"title\":\"Demo\",\"start\":4.5},]}\n```",
	}}
	a, _ := New(gen)

	res, err := AnalyzeAs[sceneReport](context.Background(), a, videoRequest())
	if err != nil {
		t.Fatalf("AnalyzeAs() error = %v", err)
	}
	want := sceneReport{Scenes: []scene{{"Intro", 0}, {"Demo", 4.5}}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %+v, want %+v", res.Value, want)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d", res.Attempts)
	}
}

func TestAnalyzeAs_ShapeMismatch(t *testing.T) {
	gen := &scriptedGenerator{completions: []string{`["not", "a", "report"]`}}
	a, _ := New(gen, WithMaxAttempts(3))

	_, err := AnalyzeAs[sceneReport](context.Background(), a, videoRequest())
	if !errors.Is(err, parse.ErrDecode) {
		t.Fatalf("AnalyzeAs() error = %v, want ErrDecode", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestRequestHelpers(t *testing.T) {
	req := Request{Media: []Media{
		{MIMEType: "video/mp4", Data: make([]byte, 10)},
		{MIMEType: "audio/wav", Data: make([]byte, 5)},
	}}
	if got := req.TotalBytes(); got != 15 {
		t.Errorf("TotalBytes() = %d, want 15", got)
	}
	if got := req.MIMETypes(); !reflect.DeepEqual(got, []string{"video/mp4", "audio/wav"}) {
		t.Errorf("MIMETypes() = %v", got)
	}
}
