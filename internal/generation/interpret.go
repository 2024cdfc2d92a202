package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The upstream output field has no stable shape: depending on the model it
// is a list of URLs, a bare URL string, or an object keyed by some
// model-specific property. Each recognized shape gets its own interpreter;
// anything else falls through to ErrUnexpectedOutput.

type outputShape int

const (
	shapeUnknown outputShape = iota
	shapeArray
	shapeString
	shapeObject
)

// outputURLKeys are probed in this exact order on object-shaped output.
var outputURLKeys = [...]string{"image", "url", "output", "generated_image"}

// ImageURL extracts the generated image URL from a raw output payload. The
// returned URL always carries an http(s) scheme; every failure wraps
// ErrUnexpectedOutput.
func ImageURL(output json.RawMessage) (string, error) {
	url, ok := "", false
	switch classifyOutput(output) {
	case shapeArray:
		url, ok = interpretArray(output)
	case shapeString:
		url, ok = interpretString(output)
	case shapeObject:
		url, ok = interpretObject(output)
	default:
		return "", fmt.Errorf("%w: output missing or unrecognized", ErrUnexpectedOutput)
	}
	if !ok {
		return "", fmt.Errorf("%w: no image url in output", ErrUnexpectedOutput)
	}
	if !IsImageURL(url) {
		return "", fmt.Errorf("%w: invalid image url %q", ErrUnexpectedOutput, url)
	}
	return url, nil
}

// IsImageURL reports whether v is an absolute http(s) URL, the validity
// invariant shared by interpretation and the gallery.
func IsImageURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func classifyOutput(raw json.RawMessage) outputShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return shapeArray
	case '"':
		return shapeString
	case '{':
		return shapeObject
	}
	return shapeUnknown
}

func interpretArray(raw json.RawMessage) (string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return "", false
	}
	var first string
	if err := json.Unmarshal(items[0], &first); err != nil {
		return "", false
	}
	return first, true
}

func interpretString(raw json.RawMessage) (string, bool) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func interpretObject(raw json.RawMessage) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", false
	}
	for _, key := range outputURLKeys {
		field, ok := fields[key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(field, &value); err != nil {
			continue
		}
		if IsImageURL(value) {
			return value, true
		}
	}
	return "", false
}
