package notice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/joelkehle/notice-analyzer/internal/notice"

// FieldExtractor is the AI path. *Extractor is the production implementation.
type FieldExtractor interface {
	Provider() string
	Extract(ctx context.Context, analysisID, text string) (AnalysisResult, error)
}

// Analyzer prefers the AI path and falls back to the rule tables. It holds no
// per-request state and is safe for concurrent use.
type Analyzer struct {
	extractor FieldExtractor
	log       logrus.FieldLogger
	tracer    trace.Tracer
}

// NewAnalyzer builds an Analyzer. A nil extractor routes every notice to the fallback path.
func NewAnalyzer(extractor FieldExtractor, log logrus.FieldLogger) *Analyzer {
	if e, ok := extractor.(*Extractor); ok && e == nil {
		extractor = nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{extractor: extractor, log: log, tracer: otel.Tracer(tracerName)}
}

func (a *Analyzer) AIEnabled() bool { return a.extractor != nil }

func (a *Analyzer) Analyze(ctx context.Context, text string) Analysis {
	id := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "notice.Analyze", trace.WithAttributes(
		attribute.String("analysis.id", id),
		attribute.Int("notice.chars", len(text)),
	))
	defer span.End()

	out := a.analyze(ctx, id, text)

	span.SetAttributes(attribute.String("analysis.path", string(out.Path)), attribute.String("analysis.risk", string(out.Result.Risk)))
	if out.FallbackReason != "" {
		span.SetAttributes(attribute.String("analysis.fallback_reason", out.FallbackReason))
	}
	analysesTotal.WithLabelValues(string(out.Path)).Inc()
	a.log.WithFields(logrus.Fields{
		"analysis_id": id,
		"path":        out.Path,
		"intent":      out.Result.Intent,
		"risk":        out.Result.Risk,
	}).Info("notice analyzed")
	return out
}

func (a *Analyzer) analyze(ctx context.Context, id, text string) Analysis {
	if len(strings.TrimSpace(text)) < MinNoticeChars {
		return Analysis{ID: id, Result: InsufficientInputResult(), Path: PathShortCircuit}
	}

	if a.extractor == nil {
		return Analysis{ID: id, Result: Fallback(text), Path: PathFallback, FallbackReason: "ai_disabled"}
	}

	// The external call runs to completion or timeout even if the caller goes away.
	callCtx, span := a.tracer.Start(context.WithoutCancel(ctx), "notice.Extract", trace.WithAttributes(
		attribute.String("llm.provider", a.extractor.Provider()),
	))
	res, err := a.extractor.Extract(callCtx, id, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if err == nil {
		res.Risk = CoerceRisk(string(res.Risk))
		return Analysis{ID: id, Result: res, Path: PathAI}
	}

	kind := extractErrorKind(err)
	class := ""
	if kind == KindServiceUnavailable {
		class = classifyTransportError(err).String()
	}
	aiFailuresTotal.WithLabelValues(kind.String(), class).Inc()
	a.log.WithFields(logrus.Fields{
		"analysis_id": id,
		"provider":    a.extractor.Provider(),
		"kind":        kind.String(),
		"class":       class,
	}).Warnf("ai extraction failed, using rule-based fallback: %v", err)

	return Analysis{ID: id, Result: Fallback(text), Path: PathFallback, FallbackReason: kind.String()}
}
