package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/leofalp/mediareport/core/report"
	"github.com/leofalp/mediareport/providers/observability"
	"github.com/leofalp/mediareport/providers/observability/slogobs"
)

// fakeGemini serves generateContent with a canned body and records the last
// request body.
type fakeGemini struct {
	status   int
	response string
	lastBody string
	lastPath string
	lastKey  string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.lastBody = string(body)
	f.lastPath = r.URL.Path
	f.lastKey = r.Header.Get("x-goog-api-key")

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.response)
}

func newTestGenerator(t *testing.T, fake *fakeGemini, opts ...Option) *Generator {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "test-key",
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	gen, err := New(client, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return gen
}

func mediaRequest() report.Request {
	return report.Request{
		Prompt: "List the scenes as JSON",
		Media:  []report.Media{{MIMEType: "video/mp4", Data: []byte("not really a video")}},
	}
}

const okResponse = "{\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[" +
	"{\"text\":\"```json\\n{\\\"scenes\\\": 2\"},{\"text\":\"}\\n```\"}]}," +
	"\"finishReason\":\"STOP\"}],\"modelVersion\":\"gemini-2.5-flash-001\"}"

func TestGenerate(t *testing.T) {
	fake := &fakeGemini{response: okResponse}
	gen := newTestGenerator(t, fake)

	got, err := gen.Generate(context.Background(), mediaRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	wantText := "```json\n{\"scenes\": 2}\n```"
	if got.Text != wantText {
		t.Errorf("Text = %q, want %q", got.Text, wantText)
	}
	if got.Model != "gemini-2.5-flash-001" {
		t.Errorf("Model = %q", got.Model)
	}
	if !strings.HasSuffix(fake.lastPath, "models/"+DefaultModel+":generateContent") {
		t.Errorf("path = %q", fake.lastPath)
	}
	if fake.lastKey != "test-key" {
		t.Errorf("api key header = %q", fake.lastKey)
	}

	for _, want := range []string{
		`"mimeType":"video/mp4"`,
		base64.StdEncoding.EncodeToString([]byte("not really a video")),
		"List the scenes as JSON",
		`"responseMimeType":"application/json"`,
	} {
		if !strings.Contains(fake.lastBody, want) {
			t.Errorf("request body missing %s:\n%s", want, fake.lastBody)
		}
	}
	if strings.Contains(fake.lastBody, "responseJsonSchema") {
		t.Error("schema hint sent without a schema")
	}
}

func TestGenerate_Options(t *testing.T) {
	fake := &fakeGemini{response: okResponse}
	gen := newTestGenerator(t, fake,
		WithModel("gemini-2.5-pro"),
		WithTemperature(0.2),
		WithMaxOutputTokens(2048),
		WithSystemInstruction("You are a video analyst."),
	)

	req := mediaRequest()
	req.Schema = map[string]any{"type": "object", "required": []string{"scenes"}}
	if _, err := gen.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gen.Model() != "gemini-2.5-pro" {
		t.Errorf("Model() = %q", gen.Model())
	}
	if !strings.Contains(fake.lastPath, "gemini-2.5-pro:generateContent") {
		t.Errorf("path = %q", fake.lastPath)
	}
	for _, want := range []string{
		`"maxOutputTokens":2048`,
		"You are a video analyst.",
		`"responseJsonSchema"`,
		`"required":["scenes"]`,
	} {
		if !strings.Contains(fake.lastBody, want) {
			t.Errorf("request body missing %s:\n%s", want, fake.lastBody)
		}
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeGemini
		wantErr error
	}{
		{
			name:    "no candidates",
			fake:    &fakeGemini{response: `{"candidates": []}`},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "only thought parts",
			fake: &fakeGemini{response: `{"candidates": [{"content": {"parts": [{"text": "thinking", "thought": true}]}}]}`},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "server error",
			fake: &fakeGemini{
				status:   http.StatusInternalServerError,
				response: `{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(t, tt.fake)
			_, err := gen.Generate(context.Background(), mediaRequest())
			if err == nil {
				t.Fatal("Generate() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerate_Observer(t *testing.T) {
	var buf bytes.Buffer
	obs := slogobs.New(slogobs.WithOutput(&buf), slogobs.WithLevel(slog.LevelDebug))
	ctx := observability.ContextWithObserver(context.Background(), obs)

	gen := newTestGenerator(t, &fakeGemini{response: okResponse})
	if _, err := gen.Generate(ctx, mediaRequest()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	logs := buf.String()
	for _, want := range []string{"Generating with Gemini", "Gemini response received", observability.SpanGenerate} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q", want)
		}
	}
}

func TestGenerate_WithAnalyzer(t *testing.T) {
	gen := newTestGenerator(t, &fakeGemini{response: okResponse})
	a, err := report.New(gen)
	if err != nil {
		t.Fatal(err)
	}

	res, err := a.Analyze(context.Background(), mediaRequest())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	m, ok := res.Value.(map[string]any)
	if !ok || m["scenes"] != float64(2) {
		t.Errorf("Value = %#v", res.Value)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil")
	}
	if _, err := NewClient(context.Background(), ""); err == nil {
		t.Error("NewClient(\"\") error = nil")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: `{"a":`}, {Text: `1}`}}},
			}}},
			want: `{"a":1}`,
		},
		{
			name: "skips thoughts and non-text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "planning", Thought: true},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}},
					{Text: "[1]"},
				}},
			}}},
			want: "[1]",
		},
		{
			name: "uses only the first candidate",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "first"}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
			}},
			want: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.resp); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}
