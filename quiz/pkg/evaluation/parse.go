package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseError reports evaluator output that could not be turned into a
// judgment. Raw holds the text as received.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "could not parse response: " + e.Reason
}

// ErrNoObject is the cause of a ParseError for text without a balanced
// JSON object.
var ErrNoObject = errors.New("no JSON object found")

// judgmentPayload mirrors Judgment with pointers so absent required fields
// can be told apart from zero values.
type judgmentPayload struct {
	IsCorrect        *bool    `json:"is_correct"`
	CorrectnessScore *float64 `json:"correctness_score"`
	Corrections      []string `json:"corrections"`
	Explanation      string   `json:"explanation"`
	Suggestions      []string `json:"suggestions"`
}

// ParseResponse extracts a Judgment from raw evaluator output.
//
// The reply may wrap the object in prose or code fences and may contain
// trailing commas or raw newlines inside strings. The first balanced object
// in the text is decoded. The score is clamped to [0, 1].
func ParseResponse(raw string) (Judgment, error) {
	var p judgmentPayload
	if err := decodeObject(raw, &p); err != nil {
		return Judgment{}, err
	}

	switch {
	case p.IsCorrect == nil:
		return Judgment{}, &ParseError{Reason: "missing field is_correct", Raw: raw}
	case p.CorrectnessScore == nil:
		return Judgment{}, &ParseError{Reason: "missing field correctness_score", Raw: raw}
	}

	return Judgment{
		IsCorrect:        *p.IsCorrect,
		CorrectnessScore: clamp(*p.CorrectnessScore, 0, 1),
		Corrections:      nonNil(p.Corrections),
		Explanation:      strings.TrimSpace(p.Explanation),
		Suggestions:      nonNil(p.Suggestions),
	}, nil
}

// ParseAssessment extracts a session Assessment from raw evaluator output
// using the same rules as ParseResponse. The grade is clamped to [0, 100].
func ParseAssessment(raw string) (Assessment, error) {
	var a struct {
		Assessment
		GradePercentage *float64 `json:"grade_percentage"`
	}
	if err := decodeObject(raw, &a); err != nil {
		return Assessment{}, err
	}
	if a.GradePercentage == nil {
		return Assessment{}, &ParseError{Reason: "missing field grade_percentage", Raw: raw}
	}

	out := a.Assessment
	out.GradePercentage = clamp(*a.GradePercentage, 0, 100)
	out.Suggestions = nonNil(out.Suggestions)
	out.Strengths = nonNil(out.Strengths)
	out.Weaknesses = nonNil(out.Weaknesses)
	return out, nil
}

func decodeObject(raw string, v any) error {
	obj, ok := FirstObject(raw)
	if !ok {
		return &ParseError{Reason: ErrNoObject.Error(), Raw: raw}
	}
	if err := json.Unmarshal([]byte(repairJSON(obj)), v); err != nil {
		return &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}
	return nil
}

// FirstObject returns the first balanced {...} span in s. Braces inside
// JSON strings are ignored, which also skips fences and prose around the
// object.
func FirstObject(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// repairJSON drops commas that directly precede a closing bracket and
// escapes raw control characters inside strings. Everything else is kept.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			}
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
