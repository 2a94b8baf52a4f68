package endpoint

import "strings"

// pathKind tags one way of locating an answer inside a decoded response.
type pathKind int

const (
	// topLevel reads a string field on the response object itself.
	topLevel pathKind = iota
	// nestedData reads a string field on an object under "data".
	nestedData
	// choicesStyle reads choices[0].message.content, the OpenAI chat shape.
	choicesStyle
)

// answerPath is one candidate location for the answer text.
type answerPath struct {
	kind  pathKind
	field string
}

// answerPaths is the fixed resolution order. Paths are tried one by one and
// the first non-empty string wins; there is no reflective probing beyond
// this list.
var answerPaths = []answerPath{
	{topLevel, "answer"},
	{topLevel, "response"},
	{topLevel, "result"},
	{topLevel, "msg"},
	{nestedData, "answer"},
	{nestedData, "response"},
	{nestedData, "result"},
	{choicesStyle, ""},
	{topLevel, "output_text"},
}

// extractAnswer resolves the answer text from a decoded response body, or ""
// when no candidate path yields a non-empty string.
func extractAnswer(raw map[string]any) string {
	for _, p := range answerPaths {
		if s, ok := p.resolve(raw); ok {
			return s
		}
	}
	return ""
}

func (p answerPath) resolve(raw map[string]any) (string, bool) {
	switch p.kind {
	case topLevel:
		return stringValue(raw[p.field])
	case nestedData:
		data, ok := raw["data"].(map[string]any)
		if !ok {
			return "", false
		}
		return stringValue(data[p.field])
	case choicesStyle:
		choices, ok := raw["choices"].([]any)
		if !ok || len(choices) == 0 {
			return "", false
		}
		first, ok := choices[0].(map[string]any)
		if !ok {
			return "", false
		}
		message, ok := first["message"].(map[string]any)
		if !ok {
			return "", false
		}
		return stringValue(message["content"])
	}
	return "", false
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
