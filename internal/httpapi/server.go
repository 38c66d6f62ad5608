package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/joelkehle/notice-analyzer/internal/notice"
	"github.com/joelkehle/notice-analyzer/internal/pdftext"
	"github.com/joelkehle/notice-analyzer/internal/report"
)

const (
	HeaderAnalysisPath = "X-Analysis-Path"
	HeaderRequestID    = "X-Request-ID"

	maxJSONBodyBytes = 2 << 20
)

type NoticeAnalyzer interface {
	Analyze(ctx context.Context, text string) notice.Analysis
	AIEnabled() bool
}

type PDFTextExtractor interface {
	Extract(ctx context.Context, r io.Reader) (pdftext.Result, error)
}

type Config struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Server struct {
	analyzer NoticeAnalyzer
	pdf      PDFTextExtractor
	renderer report.PDFRenderer
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewServer builds the API handler. renderer may be nil, in which case
// PDF reports answer 503.
func NewServer(analyzer NoticeAnalyzer, pdf PDFTextExtractor, renderer report.PDFRenderer, cfg Config, log logrus.FieldLogger) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = pdftext.DefaultMaxBytes
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	s := &Server{
		analyzer: analyzer,
		pdf:      pdf,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/analyze-pdf", s.handleAnalyzePDF)
	mux.HandleFunc("/report", s.handleReport)
	mux.Handle("/metrics", promhttp.Handler())
	return withCORS(cfg.AllowedOrigins, mux)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeAnalysis(w http.ResponseWriter, a notice.Analysis) {
	w.Header().Set(HeaderAnalysisPath, string(a.Path))
	if a.ID != "" {
		w.Header().Set(HeaderRequestID, a.ID)
	}
	writeJSON(w, http.StatusOK, a.Result)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Backend running")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ai_enabled": s.analyzer.AIEnabled()})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	var req textRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	return req.Text, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	writeAnalysis(w, s.analyzer.Analyze(r.Context(), text))
}

func (s *Server) handleAnalyzePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	log := s.log.WithField("filename", header.Filename)
	extracted, err := s.pdf.Extract(r.Context(), file)
	if errors.Is(err, pdftext.ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if err != nil {
		log.WithError(err).Warn("pdf text extraction failed")
		writeAnalysis(w, notice.Analysis{Result: notice.NotExtractableResult(), Path: notice.PathNotExtractable})
		return
	}
	if extracted.Empty() {
		log.WithField("method", extracted.Method).Info("pdf has no extractable text")
		writeAnalysis(w, notice.Analysis{Result: notice.NotExtractableResult(), Path: notice.PathNotExtractable})
		return
	}
	log.WithFields(logrus.Fields{"method": extracted.Method, "chars": len(extracted.Text)}).Debug("pdf text extracted")
	writeAnalysis(w, s.analyzer.Analyze(r.Context(), extracted.Text))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "html" && format != "pdf" {
		writeError(w, http.StatusBadRequest, "format must be html or pdf")
		return
	}

	a := s.analyzer.Analyze(r.Context(), text)
	doc := report.Document{AnalysisID: a.ID, Path: a.Path, Result: a.Result, GeneratedAt: s.now()}
	htmlDoc, err := report.HTML(doc)
	if err != nil {
		s.log.WithError(err).Error("render report html")
		writeError(w, http.StatusInternalServerError, "report rendering failed")
		return
	}
	w.Header().Set(HeaderAnalysisPath, string(a.Path))
	w.Header().Set(HeaderRequestID, a.ID)

	if format != "pdf" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, htmlDoc)
		return
	}
	if s.renderer == nil {
		writeError(w, http.StatusServiceUnavailable, "pdf rendering not available")
		return
	}
	pdf, err := s.renderer.Render(r.Context(), htmlDoc)
	if err != nil {
		s.log.WithError(err).WithField("analysis_id", a.ID).Error("render report pdf")
		writeError(w, http.StatusServiceUnavailable, "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="notice-analysis.pdf"`)
	_, _ = w.Write(pdf)
}
