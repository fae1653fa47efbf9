// Package extract recovers JSON values from free-form model output.
//
// Extraction runs an ordered chain of parsing strategies and returns the
// first structurally valid result. An empty array or object is a success.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// Shape is the top-level JSON kind a caller expects.
type Shape int

const (
	Array Shape = iota
	Object
)

func (s Shape) String() string {
	if s == Object {
		return "object"
	}
	return "array"
}

func (s Shape) open() byte {
	if s == Object {
		return '{'
	}
	return '['
}

func (s Shape) close() byte {
	if s == Object {
		return '}'
	}
	return ']'
}

// PreviewLength bounds Failure.Preview.
const PreviewLength = 300

// Failure reports that no strategy could recover a value.
type Failure struct {
	Reason  string
	Preview string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extract: %s (preview: %q)", f.Reason, f.Preview)
}

// Result is a successfully recovered value tagged with the strategy that found it.
type Result struct {
	Strategy string
	Value    json.RawMessage
}

// Strategy is one parsing attempt. It returns ok=false on any failure.
type Strategy interface {
	Name() string
	Parse(text string, shape Shape) (json.RawMessage, bool)
}

// Chain is an ordered list of strategies; the first success wins.
type Chain []Strategy

// DefaultChain is direct, fenced, pattern-scan, bracket-span.
var DefaultChain = Chain{Direct{}, Fenced{}, PatternScan{}, BracketSpan{}}

// Extract runs the chain over text.
func (c Chain) Extract(text string, shape Shape) (Result, error) {
	for _, s := range c {
		if v, ok := s.Parse(text, shape); ok {
			return Result{Strategy: s.Name(), Value: v}, nil
		}
	}
	return Result{}, &Failure{Reason: "unparseable", Preview: preview(text)}
}

// Extract runs DefaultChain over text.
func Extract(text string, shape Shape) (Result, error) {
	return DefaultChain.Extract(text, shape)
}

// ExtractArray extracts a JSON array and decodes it as a list of objects.
// Non-object elements are skipped.
func ExtractArray(text string) ([]map[string]any, error) {
	res, err := Extract(text, Array)
	if err != nil {
		return nil, err
	}
	var raw []any
	if err := json.Unmarshal(res.Value, &raw); err != nil {
		return nil, &Failure{Reason: "decode: " + err.Error(), Preview: preview(text)}
	}
	out := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ExtractObject extracts a JSON object.
func ExtractObject(text string) (map[string]any, error) {
	res, err := Extract(text, Object)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(res.Value, &m); err != nil {
		return nil, &Failure{Reason: "decode: " + err.Error(), Preview: preview(text)}
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// strict accepts candidate only if it is valid JSON of the expected shape.
func strict(candidate string, shape Shape) (json.RawMessage, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || candidate[0] != shape.open() {
		return nil, false
	}
	b := []byte(candidate)
	if !json.Valid(b) {
		return nil, false
	}
	return json.RawMessage(b), true
}

// Direct parses the whole text when it already starts with the expected bracket.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Parse(text string, shape Shape) (json.RawMessage, bool) {
	return strict(text, shape)
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\\r?\\n?(.*?)```")

// Fenced parses the contents of markdown code fences, with or without a
// language tag. Each fence is tried in order.
type Fenced struct{}

func (Fenced) Name() string { return "fenced" }

func (Fenced) Parse(text string, shape Shape) (json.RawMessage, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if v, ok := strict(m[1], shape); ok {
			return v, true
		}
	}
	return nil, false
}

var flatArrayRe = regexp.MustCompile(`\[\s*\{[^\[\]]*\}(?:\s*,\s*\{[^\[\]]*\})*\s*\]`)

// PatternScan looks for the first substring shaped like an array of flat
// objects. It only applies to arrays.
type PatternScan struct{}

func (PatternScan) Name() string { return "pattern-scan" }

func (PatternScan) Parse(text string, shape Shape) (json.RawMessage, bool) {
	if shape != Array {
		return nil, false
	}
	for _, m := range flatArrayRe.FindAllString(text, -1) {
		if v, ok := strict(m, shape); ok {
			return v, true
		}
	}
	return nil, false
}

// BracketSpan parses the span from the first opening bracket to the last
// closing one.
type BracketSpan struct{}

func (BracketSpan) Name() string { return "bracket-span" }

func (BracketSpan) Parse(text string, shape Shape) (json.RawMessage, bool) {
	start := strings.IndexByte(text, shape.open())
	end := strings.LastIndexByte(text, shape.close())
	if start < 0 || end <= start {
		return nil, false
	}
	return strict(text[start:end+1], shape)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > PreviewLength {
		r = r[:PreviewLength]
	}
	return string(r)
}
