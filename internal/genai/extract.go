package genai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractText pulls the answer text out of a generic provider response.
// Recognized shapes, in order:
//
//	"text"
//	{"text": "..."}
//	{"output": "..."}
//	{"candidates": ["..."]}
//	{"candidates": [{"content": "..."}]}           content may also be Gemini-native {"parts":[{"text":"..."}]}
//	{"candidates": [{"output": "..."}]}
//	{"candidate": {"content": "..."}}
//
// Anything else is returned as its compact JSON encoding so the answer is
// never silently dropped. The bool reports whether a known shape matched.
func ExtractText(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		// Not JSON: a plain-text body is a direct string answer.
		return strings.TrimSpace(string(body)), true
	}

	root := gjson.ParseBytes(body)
	if root.Type == gjson.String {
		return root.Str, true
	}
	if root.IsObject() {
		if text, ok := fromObject(root); ok {
			return text, true
		}
	}
	return compact(body), false
}

func fromObject(obj gjson.Result) (string, bool) {
	if s, ok := nonEmptyString(obj.Get("text")); ok {
		return s, true
	}
	if s, ok := nonEmptyString(obj.Get("output")); ok {
		return s, true
	}
	if first := obj.Get("candidates.0"); first.Exists() && obj.Get("candidates").IsArray() {
		if s, ok := fromCandidate(first); ok {
			return s, true
		}
	}
	if c := obj.Get("candidate"); c.IsObject() {
		if s, ok := fromContent(c.Get("content")); ok {
			return s, true
		}
	}
	return "", false
}

func fromCandidate(c gjson.Result) (string, bool) {
	switch {
	case c.Type == gjson.String:
		return c.Str, true
	case c.IsObject():
		if s, ok := fromContent(c.Get("content")); ok {
			return s, true
		}
		if s, ok := nonEmptyString(c.Get("output")); ok {
			return s, true
		}
	}
	return "", false
}

// fromContent accepts a plain string or Gemini's {"parts":[{"text":...}]}.
func fromContent(v gjson.Result) (string, bool) {
	if s, ok := nonEmptyString(v); ok {
		return s, true
	}
	if !v.IsObject() {
		return "", false
	}
	parts := v.Get("parts")
	if !parts.IsArray() {
		return "", false
	}
	var b strings.Builder
	parts.ForEach(func(_, part gjson.Result) bool {
		if t := part.Get("text"); part.IsObject() && t.Type == gjson.String {
			b.WriteString(t.Str)
		}
		return true
	})
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func nonEmptyString(v gjson.Result) (string, bool) {
	return v.Str, v.Type == gjson.String && v.Str != ""
}

func compact(body []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return string(body)
	}
	return buf.String()
}
