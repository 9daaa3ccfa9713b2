// Command analyze sends a video or audio file to Gemini and prints the
// structured report recovered from the model's answer.
//
// Usage:
//
//	analyze -file clip.mp4 [-prompt text] [-schema schema.json] [-model name]
//	        [-attempts n] [-timeout d] [-repair] [-indent]
//
// The API key is read from GEMINI_API_KEY and the default model from
// MEDIAREPORT_MODEL; both may come from a .env file.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/leofalp/mediareport/core/parse"
	"github.com/leofalp/mediareport/core/report"
	"github.com/leofalp/mediareport/providers/generator/gemini"
	"github.com/leofalp/mediareport/providers/observability/slogobs"

	_ "github.com/joho/godotenv/autoload"
)

const defaultPrompt = `Watch or listen to the attached media and describe it as JSON with the fields
"title" (string), "summary" (string) and "segments" (array of objects with "start" and "end"
in seconds and "description"). Answer with JSON only.`

// generatorFactory builds the upstream generator. Tests replace it.
type generatorFactory func(ctx context.Context, apiKey, model string) (report.Generator, error)

func newGeminiGenerator(ctx context.Context, apiKey, model string) (report.Generator, error) {
	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return gemini.New(client, gemini.WithModel(model), gemini.WithTemperature(0.2))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, newGeminiGenerator)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newGen generatorFactory) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "video or audio `path` to analyze (required)")
	prompt := fs.String("prompt", defaultPrompt, "instruction sent with the media")
	schemaPath := fs.String("schema", "", "JSON schema `path` passed to the model as an output hint")
	model := fs.String("model", envOr("MEDIAREPORT_MODEL", gemini.DefaultModel), "Gemini model name")
	mimeType := fs.String("mime", "", "override the detected media type")
	attempts := fs.Int("attempts", 2, "completions to request before giving up on unrecoverable output")
	timeout := fs.Duration("timeout", 5*time.Minute, "timeout for each generation request")
	repair := fs.Bool("repair", false, "fall back to jsonrepair, which may infer missing values")
	indent := fs.Bool("indent", true, "indent the output JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "analyze: -file is required")
		fs.Usage()
		return 2
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "analyze: GEMINI_API_KEY is not set")
		return 2
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 2
	}
	detected, err := detectMIME(*file, data, *mimeType)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 2
	}

	var schema any
	if *schemaPath != "" {
		schema, err = loadSchema(*schemaPath)
		if err != nil {
			fmt.Fprintf(stderr, "analyze: %v\n", err)
			return 2
		}
	}

	gen, err := newGen(ctx, apiKey, *model)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 2
	}

	observer := slogobs.New(slogobs.WithOutput(stderr))
	recOpts := []parse.Option{parse.WithPrefixLimit(parse.DefaultPrefixLimit)}
	if *repair {
		recOpts = append(recOpts, parse.WithRepair())
	}
	analyzer, err := report.New(gen,
		report.WithObserver(observer),
		report.WithRecoverer(parse.New(recOpts...)),
		report.WithMaxAttempts(*attempts),
		report.WithTimeout(*timeout),
	)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 2
	}

	res, err := analyzer.Analyze(ctx, report.Request{
		Prompt: *prompt,
		Media:  []report.Media{{MIMEType: detected, Data: data}},
		Schema: schema,
	})
	if err != nil {
		var recErr *parse.RecoveryError
		if errors.As(err, &recErr) {
			fmt.Fprintf(stderr, "analyze: no report could be recovered: %v\nmodel output begins:\n%s\n", err, recErr.Prefix)
			return 1
		}
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return 1
	}

	out := res.JSON
	if *indent {
		if pretty, err := indentJSON(out); err == nil {
			out = pretty
		}
	}
	fmt.Fprintln(stdout, out)
	observer.Info(ctx, "Report recovered")
	return 0
}

// detectMIME sniffs the media type from content, falling back to the file
// extension. Only audio and video types are accepted.
func detectMIME(path string, data []byte, override string) (string, error) {
	if override != "" {
		base, _, err := mime.ParseMediaType(override)
		if err != nil || !isMedia(base) {
			return "", fmt.Errorf("-mime %q: only audio/* and video/* types are accepted", override)
		}
		return base, nil
	}

	detected := mimetype.Detect(data).String()
	if base, _, err := mime.ParseMediaType(detected); err == nil {
		detected = base
	}
	if isMedia(detected) {
		return detected, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if byExt, ok := mediaExtensions[ext]; ok {
		return byExt, nil
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if base, _, err := mime.ParseMediaType(byExt); err == nil && isMedia(base) {
			return base, nil
		}
	}
	return "", fmt.Errorf("%s: unsupported media type %q, use -mime to override", path, detected)
}

// mediaExtensions covers formats the mime package's built-in table lacks.
var mediaExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

func isMedia(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "audio/")
}

// loadSchema reads a JSON schema file. Schemas written by hand tend to have
// the same trailing-comma slips as model output, so they go through the same
// recovery.
func loadSchema(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	schema, err := parse.RecoverAs[map[string]any](string(raw))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return schema, nil
}

func indentJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
