package notice

import (
	"errors"
	"fmt"
)

const (
	// MinNoticeChars is the trimmed length below which a notice is not analyzed.
	MinNoticeChars = 20
	// MaxPromptChars bounds the notice text sent to the inference service.
	MaxPromptChars = 24000

	IntentUnknown    = "Unknown"
	DeadlineNotFound = "Not found"

	InsufficientSummary   = "Insufficient information to analyze notice."
	NotExtractableSummary = "The PDF is not text-extractable."
	GenericSummary        = "This notice asks you to take certain actions mentioned in the document."
)

type Risk string

const (
	RiskLow     Risk = "Low"
	RiskMedium  Risk = "Medium"
	RiskHigh    Risk = "High"
	RiskUnknown Risk = "Unknown"
)

// AnalysisResult is the four-field answer returned for every notice.
type AnalysisResult struct {
	Summary  string `json:"summary" yaml:"summary"`
	Intent   string `json:"intent" yaml:"intent"`
	Deadline string `json:"deadline" yaml:"deadline"`
	Risk     Risk   `json:"risk" yaml:"risk"`
}

func InsufficientInputResult() AnalysisResult {
	return AnalysisResult{
		Summary:  InsufficientSummary,
		Intent:   IntentUnknown,
		Deadline: DeadlineNotFound,
		Risk:     RiskUnknown,
	}
}

// NotExtractableResult is returned by document collaborators when a PDF yields no text.
func NotExtractableResult() AnalysisResult {
	return AnalysisResult{
		Summary:  NotExtractableSummary,
		Intent:   IntentUnknown,
		Deadline: DeadlineNotFound,
		Risk:     RiskUnknown,
	}
}

type Path string

const (
	PathShortCircuit Path = "short_circuit"
	PathAI           Path = "ai"
	PathFallback     Path = "fallback"

	// PathNotExtractable marks a document whose text could not be read, so no analysis ran.
	PathNotExtractable Path = "not_extractable"
)

// Analysis pairs a result with the path that produced it.
type Analysis struct {
	ID             string
	Result         AnalysisResult
	Path           Path
	FallbackReason string
}

var (
	ErrServiceUnavailable = errors.New("inference service unavailable")
	ErrMalformedResponse  = errors.New("malformed inference response")
)

type ExtractErrorKind int

const (
	KindServiceUnavailable ExtractErrorKind = iota + 1
	KindMalformedResponse
)

func (k ExtractErrorKind) String() string {
	switch k {
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

type ExtractError struct {
	Kind ExtractErrorKind
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

func (e *ExtractError) Is(target error) bool {
	switch target {
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}

func unavailable(err error) error {
	return &ExtractError{Kind: KindServiceUnavailable, Err: err}
}

func malformed(err error) error {
	return &ExtractError{Kind: KindMalformedResponse, Err: err}
}

func extractErrorKind(err error) ExtractErrorKind {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindServiceUnavailable
}
