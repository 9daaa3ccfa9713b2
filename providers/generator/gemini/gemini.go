package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/leofalp/mediareport/core/report"
	"github.com/leofalp/mediareport/providers/observability"
)

const (
	providerName = "gemini"

	// DefaultModel accepts inline video and audio.
	DefaultModel = "gemini-2.5-flash"
)

// ErrEmptyResponse is returned when the first candidate carries no text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Generator implements report.Generator on top of the Gemini API.
type Generator struct {
	client *genai.Client
	cfg    *config
}

var _ report.Generator = (*Generator)(nil)

// NewClient builds a genai client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// New wraps an existing client. The caller owns the client.
func New(client *genai.Client, opts ...Option) (*Generator, error) {
	if client == nil {
		return nil, errors.New("gemini: client is required")
	}
	return &Generator{client: client, cfg: applyOptions(opts...)}, nil
}

// Model returns the model requests are sent to.
func (g *Generator) Model() string {
	return g.cfg.model
}

// Generate sends the prompt and inline media in JSON mode and returns the
// joined text of the first candidate.
func (g *Generator) Generate(ctx context.Context, req report.Request) (report.Completion, error) {
	observer := observability.ObserverFromContext(ctx)
	span := observability.SpanFromContext(ctx)

	attrs := []observability.Attribute{
		observability.String(observability.AttrGeneratorProvider, providerName),
		observability.String(observability.AttrGeneratorModel, g.cfg.model),
		observability.Int(observability.AttrGeneratorMediaCount, len(req.Media)),
		observability.Int64(observability.AttrGeneratorMediaBytes, req.TotalBytes()),
		observability.Strings(observability.AttrGeneratorMIMETypes, req.MIMETypes()),
		observability.Bool(observability.AttrGeneratorSchemaHint, req.Schema != nil),
	}
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanGenerate, attrs...)
		if span != nil {
			defer span.End()
		}
		observer.Debug(ctx, "Generating with Gemini", attrs...)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.model, buildContents(req), g.buildConfig(req))
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "generate content failed")
		}
		if observer != nil {
			observer.Error(ctx, "Gemini generation failed", observability.Error(err))
		}
		return report.Completion{}, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		if span != nil {
			span.SetStatus(observability.StatusError, ErrEmptyResponse.Error())
		}
		return report.Completion{}, ErrEmptyResponse
	}

	model := g.cfg.model
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	if observer != nil {
		observer.Debug(ctx, "Gemini response received",
			observability.String(observability.AttrGeneratorModel, model),
			observability.Int(observability.AttrRecoverInputLength, len(text)),
		)
	}
	if span != nil {
		span.SetStatus(observability.StatusOK, "")
	}
	return report.Completion{Text: text, Model: model}, nil
}

func buildContents(req report.Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Media)+1)
	for _, m := range req.Media {
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MIMEType))
	}
	if req.Prompt != "" {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (g *Generator) buildConfig(req report.Request) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if g.cfg.temperature != nil {
		gc.Temperature = genai.Ptr(*g.cfg.temperature)
	}
	if g.cfg.maxOutputTokens > 0 {
		gc.MaxOutputTokens = g.cfg.maxOutputTokens
	}
	if g.cfg.systemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(g.cfg.systemInstruction, genai.RoleUser)
	}
	if req.Schema != nil {
		gc.ResponseJsonSchema = req.Schema
	}
	return gc
}

// extractText joins the text parts of the first candidate. Thought parts are
// skipped.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
