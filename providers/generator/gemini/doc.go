// Package gemini implements report.Generator with Google's Gemini API through
// the google.golang.org/genai SDK.
//
// Media is sent inline, so each request must stay within the API's inline
// payload limit. Requests always ask for application/json output; when the
// report.Request carries a schema it is forwarded as a response schema hint.
// The model may still wrap or truncate its JSON, which is why completions go
// through package parse before anyone reads them.
//
//	client, err := gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"))
//	if err != nil {
//	    return err
//	}
//	gen, err := gemini.New(client, gemini.WithModel("gemini-2.5-flash"))
package gemini
