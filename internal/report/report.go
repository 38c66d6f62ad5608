// Package report renders an analysis result as Markdown, HTML and PDF.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/notice-analyzer/internal/notice"
)

const Disclaimer = "This is an automated reading of the notice, not legal advice. " +
	"Consult a qualified lawyer before acting on it."

type Document struct {
	AnalysisID  string
	Path        notice.Path
	Result      notice.AnalysisResult
	GeneratedAt time.Time
}

func Markdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# Notice Analysis\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		fmt.Fprintf(&b, "| %s | %s |\n", k, escapeCell(v))
	}
	row("Intent", doc.Result.Intent)
	row("Deadline", doc.Result.Deadline)
	row("Risk", string(doc.Result.Risk))
	row("Method", methodLabel(doc.Path))
	b.WriteString("\n## Summary\n\n")
	b.WriteString(escapeMarkdown(doc.Result.Summary))
	b.WriteString("\n\n---\n\n_")
	b.WriteString(Disclaimer)
	b.WriteString("_\n")
	return b.String()
}

func methodLabel(p notice.Path) string {
	switch p {
	case notice.PathAI:
		return "Language model extraction"
	case notice.PathFallback:
		return "Rule-based keyword classification"
	case notice.PathShortCircuit:
		return "Not analyzed (insufficient input)"
	case notice.PathNotExtractable:
		return "Not analyzed (no extractable text)"
	default:
		return string(p)
	}
}

// HTML renders the Markdown report inside a standalone printable page.
func HTML(doc Document) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(Markdown(doc)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	var meta strings.Builder
	if doc.AnalysisID != "" {
		meta.WriteString("<div><strong>Reference:</strong> " + html.EscapeString(doc.AnalysisID) + "</div>")
	}
	if !doc.GeneratedAt.IsZero() {
		meta.WriteString("<div><strong>Date:</strong> " + html.EscapeString(doc.GeneratedAt.Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Notice Analysis</title>" +
		"<style>" + styleCSS + "</style></head><body><div class='wrap'>" +
		"<div class='meta'>" + meta.String() + "</div>" +
		"<span class='badge risk-" + strings.ToLower(string(doc.Result.Risk)) + "'>Risk: " + html.EscapeString(string(doc.Result.Risk)) + "</span>" +
		"<div class='report'>" + content.String() + "</div></div></body></html>", nil
}

// escapeMarkdown keeps model-produced text from injecting markup into the report.
func escapeMarkdown(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(escapeMarkdown(s), "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

const styleCSS = `body{font-family:Georgia,serif;color:#1c1917;background:#fff;margin:0;padding:1rem;}
.wrap{max-width:820px;margin:0 auto;}
.meta{color:#44403c;font-size:0.85rem;margin-bottom:0.5rem;}
.badge{display:inline-block;padding:0.15rem 0.6rem;border-radius:999px;font-size:0.8rem;border:1px solid #a8a29e;}
.risk-high{background:#fee2e2;color:#7f1d1d;border-color:#fca5a5;}
.risk-medium{background:#fef3c7;color:#78350f;border-color:#fcd34d;}
.risk-low{background:#dcfce7;color:#14532d;border-color:#86efac;}
.report table{width:100%;border-collapse:collapse;font-size:0.9rem;margin:1rem 0;}
.report th,.report td{border:1px solid #a8a29e;padding:0.35rem 0.5rem;text-align:left;vertical-align:top;}
.report thead th{background:#f1f5f9;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;}}`
