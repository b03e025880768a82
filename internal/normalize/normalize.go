// Package normalize extracts stable values from the heterogeneous JSON
// documents returned by the remote indexer. The indexer's response shape is
// not contractually fixed (camelCase vs snake_case, nested vs flat), so all
// shape tolerance lives here instead of being scattered through services.
package normalize

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	youtubeIDPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	youtubeIDTokenPattern = regexp.MustCompile(`([A-Za-z0-9_-]{11})`)
	uuidPattern           = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

// AsRecord returns value as a JSON object map, or nil for any other shape.
func AsRecord(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return nil
}

// valueAtPath walks a dotted field path through nested objects.
// Arrays are not traversed.
func valueAtPath(source interface{}, path string) interface{} {
	current := source
	for _, part := range strings.Split(path, ".") {
		obj := AsRecord(current)
		if obj == nil {
			return nil
		}
		next, ok := obj[part]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// PickFirst returns the value at the first path that resolves to a non-nil
// value, walking each dotted path in order. First match in list order wins;
// partial values are never merged across paths. Returns nil when no path
// resolves.
func PickFirst(source interface{}, paths []string) interface{} {
	for _, path := range paths {
		if value := valueAtPath(source, path); value != nil {
			return value
		}
	}
	return nil
}

// String returns a pointer to the trimmed string value, or nil when the value
// is not a string or trims to empty.
func String(value interface{}) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Integer coerces a JSON number or numeric string into a non-negative
// rounded int. Unparsable values yield nil, never zero, so "unknown" stays
// distinguishable from "measured zero".
func Integer(value interface{}) *int {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		n := int(math.Max(0, math.Round(v)))
		return &n
	case int:
		n := v
		if n < 0 {
			n = 0
		}
		return &n
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		n := int(math.Max(0, math.Round(parsed)))
		return &n
	default:
		return nil
	}
}

// IsUUID reports whether s is a well-formed UUID.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// CountOccurrences counts artifact entries in a transcript or OCR document.
// Accepts a bare array, an object with an occurrences array, or an object
// with a data.occurrences array; anything else counts as zero.
func CountOccurrences(doc interface{}) int {
	if doc == nil {
		return 0
	}

	if arr, ok := doc.([]interface{}); ok {
		return len(arr)
	}

	obj := AsRecord(doc)
	if obj == nil {
		return 0
	}

	if arr, ok := obj["occurrences"].([]interface{}); ok {
		return len(arr)
	}

	if data := AsRecord(obj["data"]); data != nil {
		if arr, ok := data["occurrences"].([]interface{}); ok {
			return len(arr)
		}
	}

	return 0
}

// DefaultOccurrences is the empty artifact document stored when the indexer
// response carries no transcript or OCR payload.
func DefaultOccurrences(youtubeURL string) map[string]interface{} {
	return map[string]interface{}{
		"video_url":   youtubeURL,
		"occurrences": []interface{}{},
	}
}

// ExtractYouTubeVideoID normalizes a URL or bare id to the stable 11-character
// YouTube video id. Attempts, in order: exact token match, URL parse with
// host-specific rules, generic token capture. Returns "" when nothing matches.
func ExtractYouTubeVideoID(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if youtubeIDPattern.MatchString(trimmed) {
		return trimmed
	}

	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

		if host == "youtu.be" {
			if segment := firstPathSegment(u.Path); youtubeIDPattern.MatchString(segment) {
				return segment
			}
		}

		if host == "youtube.com" || host == "m.youtube.com" {
			if v := u.Query().Get("v"); youtubeIDPattern.MatchString(v) {
				return v
			}

			parts := splitPath(u.Path)
			if len(parts) >= 2 && (parts[0] == "shorts" || parts[0] == "embed") {
				if youtubeIDPattern.MatchString(parts[1]) {
					return parts[1]
				}
			}
		}
	}

	if m := youtubeIDTokenPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return ""
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func firstPathSegment(path string) string {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
