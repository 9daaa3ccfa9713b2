package observability

// Semantic conventions shared by every component that records observations.

// --- Recovery Attributes ---

const (
	// AttrRecoverInputLength is the byte length of the raw completion
	AttrRecoverInputLength = "recover.input.length"

	// AttrRecoverOutputLength is the byte length of the normalized JSON text
	AttrRecoverOutputLength = "recover.output.length"

	// AttrRecoverStage is the name of a normalization stage
	AttrRecoverStage = "recover.stage"

	// AttrRecoverStages lists the stages that were applied, in order
	AttrRecoverStages = "recover.stages"

	// AttrRecoverFallback is true when the fallback re-extraction produced the result
	AttrRecoverFallback = "recover.fallback"

	// AttrRecoverRepaired is true when the opt-in repair pass produced the result
	AttrRecoverRepaired = "recover.repaired"

	// AttrRecoverErrorKind is the RecoveryError kind
	AttrRecoverErrorKind = "recover.error.kind"

	// AttrRecoverPrefix is the bounded prefix of a rejected completion
	AttrRecoverPrefix = "recover.prefix"
)

// --- Generator Attributes ---

const (
	// AttrGeneratorProvider is the name of the generation backend (e.g., "gemini")
	AttrGeneratorProvider = "generator.provider"

	// AttrGeneratorModel is the model identifier
	AttrGeneratorModel = "generator.model"

	// AttrGeneratorMediaCount is the number of media parts attached to the request
	AttrGeneratorMediaCount = "generator.media.count"

	// AttrGeneratorMediaBytes is the total size of the attached media
	AttrGeneratorMediaBytes = "generator.media.bytes"

	// AttrGeneratorMIMETypes lists the MIME types of the attached media
	AttrGeneratorMIMETypes = "generator.media.mime_types"

	// AttrGeneratorSchemaHint is true when an output schema was requested
	AttrGeneratorSchemaHint = "generator.schema_hint"
)

// --- Analyzer Attributes ---

const (
	// AttrAnalyzeAttempt is the 1-based attempt number
	AttrAnalyzeAttempt = "analyze.attempt"

	// AttrAnalyzeMaxAttempts is the configured attempt budget
	AttrAnalyzeMaxAttempts = "analyze.max_attempts"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanRecover  = "recover"
	SpanAnalyze  = "report.analyze"
	SpanGenerate = "generator.generate"
)

// --- Event Names ---

const (
	EventRecoverStage    = "recover.stage"
	EventRecoverFallback = "recover.fallback"
	EventRecoverRepair   = "recover.repair"
	EventAnalyzeRetry    = "report.retry"
)

// --- Metric Names ---

const (
	// MetricRecoverSuccess counts recoveries that produced a value
	MetricRecoverSuccess = "mediareport.recover.success"

	// MetricRecoverFailure counts recoveries that ended in a RecoveryError
	MetricRecoverFailure = "mediareport.recover.failure"

	// MetricRecoverDuration records recovery latency in milliseconds
	MetricRecoverDuration = "mediareport.recover.duration"

	// MetricAnalyzeAttempts records how many generation attempts an analysis used
	MetricAnalyzeAttempts = "mediareport.analyze.attempts"
)
