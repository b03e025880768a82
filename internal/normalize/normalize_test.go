package normalize

import (
	"testing"
)

func TestExtractYouTubeVideoID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"mobile url", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme falls back to token scan", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"whitespace trimmed", "  dQw4w9WgXcQ  ", "dQw4w9WgXcQ"},
		{"garbage", "not a video", ""},
		{"empty", "", ""},
		{"too short token", "abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractYouTubeVideoID(tt.input)
			if got != tt.want {
				t.Errorf("ExtractYouTubeVideoID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPickFirst(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{"b": float64(1)},
		"c": float64(2),
	}

	tests := []struct {
		name  string
		paths []string
		want  interface{}
	}{
		{"first resolving path wins", []string{"a.b", "c"}, float64(1)},
		{"earlier non-resolving path is skipped", []string{"missing", "c"}, float64(2)},
		{"nested miss", []string{"a.x"}, nil},
		{"no paths resolve", []string{"x", "y.z"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickFirst(doc, tt.paths)
			if got != tt.want {
				t.Errorf("PickFirst(%v) = %v, want %v", tt.paths, got, tt.want)
			}
		})
	}

	if got := PickFirst(nil, []string{"a"}); got != nil {
		t.Errorf("PickFirst(nil) = %v, want nil", got)
	}
}

func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		name string
		doc  interface{}
		want int
	}{
		{"bare array", []interface{}{1, 2, 3}, 3},
		{"occurrences array", map[string]interface{}{
			"occurrences": []interface{}{1, 2},
		}, 2},
		{"nested data.occurrences", map[string]interface{}{
			"data": map[string]interface{}{"occurrences": []interface{}{1}},
		}, 1},
		{"empty occurrences", map[string]interface{}{"occurrences": []interface{}{}}, 0},
		{"occurrences not an array", map[string]interface{}{"occurrences": "two"}, 0},
		{"nil", nil, 0},
		{"scalar", "hello", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountOccurrences(tt.doc)
			if got != tt.want {
				t.Errorf("CountOccurrences() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  *int
	}{
		{"float", float64(42), intPtr(42)},
		{"rounds", float64(41.6), intPtr(42)},
		{"negative clamps to zero", float64(-5), intPtr(0)},
		{"numeric string", "17", intPtr(17)},
		{"float string", "17.4", intPtr(17)},
		{"unparsable string", "lots", nil},
		{"empty string", "", nil},
		{"bool", true, nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Integer(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Integer(%v) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Integer(%v) = %d, want %d", tt.input, *got, *tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := String("  hi  "); got == nil || *got != "hi" {
		t.Errorf("String should trim, got %v", got)
	}
	if got := String("   "); got != nil {
		t.Errorf("whitespace-only should be nil, got %q", *got)
	}
	if got := String(float64(3)); got != nil {
		t.Errorf("non-string should be nil, got %q", *got)
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("a3bb189e-8bf9-3888-9912-ace4e6543002") {
		t.Error("expected well-formed UUID to match")
	}
	if !IsUUID("A3BB189E-8BF9-3888-9912-ACE4E6543002") {
		t.Error("expected uppercase UUID to match")
	}
	if IsUUID("run-12345") {
		t.Error("expected opaque id to not match")
	}
	if IsUUID("") {
		t.Error("expected empty string to not match")
	}
}

func intPtr(n int) *int {
	return &n
}
