// Package parse recovers structured data from model completions that are
// supposed to be JSON but often are not quite: wrapped in prose or markdown
// code fences, cut off by a length limit, or carrying trailing commas and
// stray control characters.
//
// [Recover] and [Recoverer.Run] apply an ordered set of normalization stages
// (fence stripping, span isolation, trailing-comma and control-character
// removal, bracket balancing), parse strictly, and fall back to re-extracting
// top-level blocks from the trimmed input. The scanner behind these stages
// tracks string literals, so braces and commas inside strings are left alone.
//
// Every failure is a [*RecoveryError]; a failed recovery never yields a
// default or partially-filled value. Unescaped quotes inside strings and
// dangling keys without values are deliberately not repaired. [WithRepair]
// opts into a jsonrepair pass that does attempt such repairs, at the cost of
// possibly inferring data.
//
// [RecoverAs] decodes the recovered JSON into a caller type. Checking that the
// value has the fields a caller expects remains the caller's job.
//
// Bracket balancing appends closers at the very end of the text only. A payload
// truncated several levels deep is closed in a syntactically valid but possibly
// semantically wrong place.
package parse
