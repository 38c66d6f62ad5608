// Package pdftext pulls plain text out of uploaded PDF documents.
package pdftext

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultMaxBytes = 20 * 1024 * 1024
	maxInflated     = 16 * 1024 * 1024
)

const (
	MethodPdftotext  = "pdftotext"
	MethodStreamScan = "stream-scan"
	MethodNone       = "none"
)

var ErrTooLarge = errors.New("pdf too large")

var streamPattern = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\n?endstream`)

type Result struct {
	Text   string
	Method string
}

// Empty reports whether no usable text was found.
func (r Result) Empty() bool { return strings.TrimSpace(r.Text) == "" }

type Extractor struct {
	// PdftotextPath is the poppler binary; empty means "pdftotext" on PATH.
	PdftotextPath string
	MaxBytes      int64
}

func Extract(ctx context.Context, r io.Reader) (Result, error) {
	return Extractor{}.Extract(ctx, r)
}

// Extract reads the whole document and returns its text. A document with no
// extractable text is not an error: the result is simply Empty.
func (e Extractor) Extract(ctx context.Context, r io.Reader) (Result, error) {
	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	blob, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %w", err)
	}
	if int64(len(blob)) > limit {
		return Result{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	if text, err := e.runPdftotext(ctx, blob); err == nil && strings.TrimSpace(text) != "" {
		return Result{Text: strings.TrimSpace(text), Method: MethodPdftotext}, nil
	}
	if text := ScanContentStreams(blob); text != "" {
		return Result{Text: text, Method: MethodStreamScan}, nil
	}
	return Result{Method: MethodNone}, nil
}

func (e Extractor) runPdftotext(ctx context.Context, blob []byte) (string, error) {
	bin := e.PdftotextPath
	if bin == "" {
		bin = "pdftotext"
	}
	cmd := exec.CommandContext(ctx, bin, "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(blob)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ScanContentStreams collects text-showing operands from every content stream,
// inflating Flate-compressed streams first.
func ScanContentStreams(blob []byte) string {
	var parts []string
	for _, m := range streamPattern.FindAllSubmatch(blob, -1) {
		data := m[1]
		if inflated, err := inflate(data); err == nil {
			data = inflated
		}
		if text := textFromContent(data); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxInflated))
	if len(out) > 0 {
		// Trailing garbage after the deflate stream is common; keep what decoded.
		return out, nil
	}
	return nil, err
}

func textFromContent(data []byte) string {
	if !bytes.Contains(data, []byte("BT")) {
		return ""
	}
	var b strings.Builder
	inText, inArray := false, false
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteral(data, i+1)
			if inText {
				b.WriteString(s)
			}
			i = next
		case c == '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i += 2
				continue
			}
			end := bytes.IndexByte(data[i:], '>')
			if end < 0 {
				return tidy(b.String())
			}
			i += end + 1
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case isSpace(c) || c == '>' || c == '{' || c == '}' || c == ')':
			i++
		default:
			start := i
			for i < len(data) && !isSpace(data[i]) && !isDelimiter(data[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			tok := string(data[start:i])
			switch tok {
			case "BT":
				inText = true
			case "ET":
				inText = false
				newline()
			case "Td", "TD", "T*", "'", "\"":
				if inText {
					newline()
				}
			default:
				if inText && inArray {
					if n, err := strconv.ParseFloat(tok, 64); err == nil && n <= -200 {
						b.WriteByte(' ')
					}
				}
			}
		}
	}
	return tidy(b.String())
}

func readLiteral(data []byte, i int) (string, int) {
	var b strings.Builder
	depth := 1
	for i < len(data) {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				return b.String(), i
			}
			e := data[i]
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				if e == '\r' && i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for ; j < 3 && i+j < len(data) && data[i+j] >= '0' && data[i+j] <= '7'; j++ {
						v = v*8 + int(data[i+j]-'0')
					}
					i += j - 1
					writeByteRune(&b, byte(v))
				} else {
					b.WriteByte(e)
				}
			}
			i++
		case '(':
			depth++
			b.WriteByte(c)
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		default:
			writeByteRune(&b, c)
			i++
		}
	}
	return b.String(), i
}

func writeByteRune(b *strings.Builder, c byte) {
	switch {
	case c == '\n' || c == '\t' || c == '\r':
		b.WriteByte(c)
	case c < 0x20 || c == 0x7f:
	case c < 0x80:
		b.WriteByte(c)
	default:
		// Treat high bytes as Latin-1.
		b.WriteRune(rune(c))
	}
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
