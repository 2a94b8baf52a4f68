// Package jsonrepair recovers structured data from the malformed JSON that
// LLMs routinely emit: truncated objects, unescaped quotes inside string
// values, missing commas between adjacent objects.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	controlChars   = regexp.MustCompile(`[\x00-\x1f]+`)
	quoteThenBrace = regexp.MustCompile(`"\s*\{`)
	braceThenQuote = regexp.MustCompile(`\}\s*"`)
)

// previewLen bounds the input preview logged on total parse failure.
const previewLen = 400

// Parser repairs and decodes LLM output into a generic mapping.
type Parser struct {
	logger *zap.Logger
}

// ParserOptions configures Parser creation.
type ParserOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used to report unrecoverable inputs.
func WithLogger(logger *zap.Logger) func(*ParserOptions) {
	return func(opts *ParserOptions) {
		opts.logger = logger
	}
}

// NewParser creates a Parser using functional options.
func NewParser(opts ...func(*ParserOptions)) *Parser {
	options := &ParserOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &Parser{logger: options.logger}
}

// Parse decodes raw into a mapping, repairing common LLM malformations along
// the way. It is total: for any input it returns a mapping (possibly empty)
// and never fails. An unrecoverable input is reported through the logger as a
// diagnostic event, not an error, so batch runs are never interrupted.
func (p *Parser) Parse(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	// Decode before any structural repair: bracket balancing counts braces
	// inside string literals too, so running it on already-valid input can
	// corrupt it.
	cleaned := controlChars.ReplaceAllString(raw, " ")
	if m, ok := decode(cleaned); ok {
		return m
	}

	cleaned = balanceBrackets(cleaned)
	if m, ok := decode(cleaned); ok {
		return m
	}
	if m, ok := decode(escapeInnerQuotes(cleaned)); ok {
		return m
	}
	if m, ok := decode(insertMissingCommas(cleaned)); ok {
		return m
	}

	p.logger.Warn("json repair failed",
		zap.String("kind", "json_parse_error"),
		zap.String("preview", preview(cleaned)),
	)
	return map[string]any{}
}

// Parse decodes raw with a parser that logs nowhere. Convenience for callers
// that manage diagnostics themselves.
func Parse(raw string) map[string]any {
	return NewParser().Parse(raw)
}

func decode(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// balanceBrackets appends the closing braces and brackets a truncated
// completion left off.
func balanceBrackets(s string) string {
	if n := strings.Count(s, "{") - strings.Count(s, "}"); n > 0 {
		s += strings.Repeat("}", n)
	}
	if n := strings.Count(s, "[") - strings.Count(s, "]"); n > 0 {
		s += strings.Repeat("]", n)
	}
	return s
}

// escapeInnerQuotes walks the input tracking string-literal state and escapes
// any quote inside a string value that is not immediately followed by a
// structural delimiter. This handles completions that quote terms inside
// free-text fields without escaping them.
func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case ch == '\\':
			b.WriteByte(ch)
			escaped = true
		case ch == '"':
			if !inString {
				inString = true
				b.WriteByte(ch)
				break
			}
			rest := strings.TrimLeft(s[i+1:], " \t\r\n")
			if rest == "" || rest[0] == ',' || rest[0] == '}' || rest[0] == ']' || rest[0] == ':' {
				inString = false
				b.WriteByte(ch)
			} else {
				// Inner quote, escape it.
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// insertMissingCommas patches the two comma omissions seen in practice:
// a string value running straight into the next object, and an object closing
// straight into the next key.
func insertMissingCommas(s string) string {
	repaired := quoteThenBrace.ReplaceAllString(s, `", {`)
	repaired = braceThenQuote.ReplaceAllString(repaired, `}, "`)
	return repaired
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen]
	}
	return s
}
