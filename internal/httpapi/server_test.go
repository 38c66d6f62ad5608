package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/notice-analyzer/internal/notice"
	"github.com/joelkehle/notice-analyzer/internal/pdftext"
	"github.com/joelkehle/notice-analyzer/internal/report"
)

const rentNotice = "You are hereby directed to pay the pending rent within 15 days, failing which legal action will be initiated."

type fakePDF struct {
	result pdftext.Result
	err    error
	got    []byte
}

func (f *fakePDF) Extract(_ context.Context, r io.Reader) (pdftext.Result, error) {
	f.got, _ = io.ReadAll(r)
	return f.result, f.err
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, htmlDoc string) ([]byte, error) {
	f.html = htmlDoc
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newServerForTest(pdf PDFTextExtractor, renderer *fakeRenderer, origins ...string) http.Handler {
	analyzer := notice.NewAnalyzer(nil, quietLogger())
	var r report.PDFRenderer
	if renderer != nil {
		r = renderer
	}
	if pdf == nil {
		pdf = &fakePDF{}
	}
	return NewServer(analyzer, pdf, r, Config{AllowedOrigins: origins, MaxUploadBytes: 1 << 20}, quietLogger())
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postFile(t *testing.T, h http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "notice.pdf")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/analyze-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) notice.AnalysisResult {
	t.Helper()
	var out notice.AnalysisResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	h := newServerForTest(nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Backend running", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"ai_enabled":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnalyzeFallbackPath(t *testing.T) {
	h := newServerForTest(nil, nil)
	rr := postJSON(t, h, "/analyze", map[string]string{"text": rentNotice})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(notice.PathFallback), rr.Header().Get(HeaderAnalysisPath))
	assert.NotEmpty(t, rr.Header().Get(HeaderRequestID))

	got := decodeResult(t, rr)
	assert.Equal(t, notice.AnalysisResult{
		Summary:  "The notice demands payment of pending rent amounts.",
		Intent:   "Recovery of unpaid rent",
		Deadline: "Within 15 days",
		Risk:     notice.RiskHigh,
	}, got)
}

func TestAnalyzeShortInput(t *testing.T) {
	h := newServerForTest(nil, nil)
	rr := postJSON(t, h, "/analyze", map[string]string{"text": "pay now"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(notice.PathShortCircuit), rr.Header().Get(HeaderAnalysisPath))
	assert.Equal(t, notice.InsufficientInputResult(), decodeResult(t, rr))
}

func TestAnalyzeMissingTextTreatedAsEmpty(t *testing.T) {
	h := newServerForTest(nil, nil)
	rr := postJSON(t, h, "/analyze", map[string]string{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, notice.InsufficientInputResult(), decodeResult(t, rr))
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	h := newServerForTest(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAnalyzePDFNoFile(t *testing.T) {
	h := newServerForTest(nil, nil)
	rr := postFile(t, h, "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rr.Body.String())
}

func TestAnalyzePDFExtractsAndAnalyzes(t *testing.T) {
	pdf := &fakePDF{result: pdftext.Result{Text: rentNotice, Method: pdftext.MethodPdftotext}}
	h := newServerForTest(pdf, nil)
	rr := postFile(t, h, "file", []byte("%PDF-1.4 body"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []byte("%PDF-1.4 body"), pdf.got)
	assert.Equal(t, "Recovery of unpaid rent", decodeResult(t, rr).Intent)
}

func TestAnalyzePDFWithoutText(t *testing.T) {
	for name, pdf := range map[string]*fakePDF{
		"empty":      {result: pdftext.Result{Method: pdftext.MethodNone}},
		"unreadable": {err: errors.New("broken xref")},
	} {
		t.Run(name, func(t *testing.T) {
			rr := postFile(t, newServerForTest(pdf, nil), "file", []byte("%PDF"))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, string(notice.PathNotExtractable), rr.Header().Get(HeaderAnalysisPath))
			assert.Equal(t, notice.NotExtractableResult(), decodeResult(t, rr))
		})
	}
}

func TestAnalyzePDFTooLarge(t *testing.T) {
	pdf := &fakePDF{err: pdftext.ErrTooLarge}
	rr := postFile(t, newServerForTest(pdf, nil), "file", []byte("%PDF"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestReportHTML(t *testing.T) {
	h := newServerForTest(nil, nil)
	rr := postJSON(t, h, "/report", map[string]string{"text": rentNotice})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Recovery of unpaid rent")
	assert.Contains(t, rr.Body.String(), "risk-high")
}

func TestReportPDF(t *testing.T) {
	renderer := &fakeRenderer{}
	h := newServerForTest(nil, renderer)
	rr := postJSON(t, h, "/report?format=pdf", map[string]string{"text": rentNotice})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, renderer.html, "Within 15 days")
}

func TestReportPDFUnavailable(t *testing.T) {
	rr := postJSON(t, newServerForTest(nil, nil), "/report?format=pdf", map[string]string{"text": rentNotice})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	failing := &fakeRenderer{err: errors.New("chrome not found")}
	rr = postJSON(t, newServerForTest(nil, failing), "/report?format=pdf", map[string]string{"text": rentNotice})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = postJSON(t, newServerForTest(nil, nil), "/report?format=docx", map[string]string{"text": rentNotice})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newServerForTest(nil, nil)
	postJSON(t, h, "/analyze", map[string]string{"text": rentNotice})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "notice_analyses_total")
}

func TestCORS(t *testing.T) {
	h := newServerForTest(nil, nil, "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rr = httptest.NewRecorder()
	newServerForTest(nil, nil, "*").ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
