package notice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const extractorSystemPrompt = "You extract information from a legal notice.\n\n" +
	"Return ONLY a valid JSON object with exactly these four string keys:\n" +
	"  \"summary\": plain-language summary of what the notice asks (10-15 words),\n" +
	"  \"intent\": the purpose or category of the notice (5-6 words),\n" +
	"  \"deadline\": the deadline for action as stated or inferred, or \"Not found\",\n" +
	"  \"risk\": one of \"Low\", \"Medium\" or \"High\" for the consequence of ignoring it.\n\n" +
	"Do not add any other keys, commentary or formatting."

const (
	DefaultTimeout = 15 * time.Second
	MinTimeout     = 15 * time.Second
	MaxTimeout     = 20 * time.Second

	maxLoggedRawChars = 2000
)

var errRateLimited = errors.New("local inference rate limit exceeded")

// risk is optional; an absent value coerces to Unknown.
var requiredKeys = []string{"summary", "intent", "deadline"}

type ExtractorConfig struct {
	Timeout time.Duration
	// RequestsPerMinute of zero disables local rate limiting.
	RequestsPerMinute int
	Burst             int
}

// Extractor turns notice text into an AnalysisResult through an LLMCaller.
// It makes exactly one call per Extract and never retries.
type Extractor struct {
	caller  LLMCaller
	timeout time.Duration
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

func NewExtractor(caller LLMCaller, cfg ExtractorConfig, log logrus.FieldLogger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Extractor{caller: caller, timeout: cfg.Timeout, log: log}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}
	return e
}

func (e *Extractor) Provider() string { return e.caller.Provider() }

// Extract returns an *ExtractError of kind ServiceUnavailable or MalformedResponse on failure.
func (e *Extractor) Extract(ctx context.Context, analysisID, text string) (AnalysisResult, error) {
	if e.limiter != nil && !e.limiter.Allow() {
		return AnalysisResult{}, unavailable(errRateLimited)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	raw, err := e.caller.GenerateJSON(callCtx, extractorSystemPrompt, buildPrompt(text))
	aiCallDuration.WithLabelValues(e.caller.Provider()).Observe(time.Since(started).Seconds())
	if err != nil {
		return AnalysisResult{}, unavailable(fmt.Errorf("%s call: %w", e.caller.Provider(), err))
	}

	e.log.WithFields(logrus.Fields{
		"analysis_id": analysisID,
		"provider":    e.caller.Provider(),
		"raw_chars":   len(raw),
	}).Debugf("raw inference output: %s", truncateForLog(raw))

	return parseFields(raw)
}

func buildPrompt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > MaxPromptChars {
		text = strings.ToValidUTF8(text[:MaxPromptChars], "")
	}
	return "Legal notice text:\n" + text
}

func parseFields(raw string) (AnalysisResult, error) {
	clean := stripCodeFences(raw)
	if clean == "" {
		return AnalysisResult{}, malformed(errors.New("empty response"))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return AnalysisResult{}, malformed(fmt.Errorf("json parse: %w", err))
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return AnalysisResult{}, malformed(fmt.Errorf("missing keys: %s", strings.Join(missing, ", ")))
	}

	summary, ok := stringField(fields["summary"])
	if !ok || summary == "" {
		return AnalysisResult{}, malformed(errors.New("summary must be a non-empty string"))
	}
	intent, ok := stringField(fields["intent"])
	if !ok {
		return AnalysisResult{}, malformed(errors.New("intent must be a string"))
	}
	deadline, ok := stringField(fields["deadline"])
	if !ok {
		return AnalysisResult{}, malformed(errors.New("deadline must be a string"))
	}
	if intent == "" {
		intent = IntentUnknown
	}
	if deadline == "" {
		deadline = DeadlineNotFound
	}
	risk, _ := stringField(fields["risk"])
	return AnalysisResult{
		Summary:  summary,
		Intent:   intent,
		Deadline: deadline,
		Risk:     CoerceRisk(risk),
	}, nil
}

// stringField accepts JSON strings and null (as ""); other types are rejected.
func stringField(raw json.RawMessage) (string, bool) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if s == nil {
		return "", true
	}
	return strings.TrimSpace(*s), true
}

// CoerceRisk maps model output onto Low, Medium or High; anything else is Unknown.
func CoerceRisk(s string) Risk {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

func truncateForLog(s string) string {
	if len(s) <= maxLoggedRawChars {
		return s
	}
	return strings.ToValidUTF8(s[:maxLoggedRawChars], "") + "...[truncated]"
}
