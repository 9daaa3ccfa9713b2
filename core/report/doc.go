// Package report turns video or audio into a structured report.
//
// An Analyzer sends media and a prompt to a Generator (for example the Gemini
// generator in providers/generator/gemini) and recovers JSON from whatever
// text comes back, using package parse. Models asked for JSON routinely wrap
// it in markdown fences, add prose, leave trailing commas or stop mid-object;
// the Analyzer hides those differences from the caller.
//
// A completion that cannot be recovered is an error, not an empty report:
//
//	res, err := analyzer.Analyze(ctx, report.Request{
//	    Prompt: "Summarize each scene as JSON",
//	    Media:  []report.Media{{MIMEType: "video/mp4", Data: video}},
//	})
//	var recErr *parse.RecoveryError
//	if errors.As(err, &recErr) {
//	    // the report is unknown; recErr.Prefix shows what the model said
//	}
//
// With WithMaxAttempts the Analyzer asks for a fresh completion when one is
// unrecoverable. Generation errors are returned immediately.
package report
