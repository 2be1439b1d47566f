package textgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize turns a raw model response into a CardText. Models answer with
// a bare JSON object most of the time, but also with the object wrapped in
// markdown code fences or inside a one-element array. Anything else is a
// parse failure, never silently patched over.
func Normalize(raw string) (*CardText, error) {
	s := stripFences(strings.TrimSpace(raw))
	if s == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}

	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	// A one-element list is a known model quirk; unwrap it once.
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty array", ErrParse)
		}
		v = list[0]
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrParse)
	}

	text := &CardText{
		Definition:  stringField(obj, "definition"),
		Sentence:    stringField(obj, "sentence"),
		Translation: stringField(obj, "translation"),
		Scenario:    stringField(obj, "scenario"),
	}
	if text.Definition == "" {
		return nil, fmt.Errorf("%w: missing definition", ErrParse)
	}
	return text, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag on the opening line.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
