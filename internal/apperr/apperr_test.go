package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromTypedError(t *testing.T) {
	typed := BadRequest(CodeYoutubeURLRequired, "youtubeUrl is required")

	got := From(typed)
	if got != typed {
		t.Error("From must return the typed error unchanged")
	}

	wrapped := fmt.Errorf("start run: %w", typed)
	got = From(wrapped)
	if got.Code != CodeYoutubeURLRequired {
		t.Errorf("code = %q, want %q", got.Code, CodeYoutubeURLRequired)
	}
}

func TestFromUntypedError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"admin rejection maps to 403", errors.New("user is not an admin"), http.StatusForbidden},
		{"invalid credential maps to 401", errors.New("Invalid token"), http.StatusUnauthorized},
		{"authorization header maps to 401", errors.New("Authorization header missing"), http.StatusUnauthorized},
		{"anything else maps to 500", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", got.Status, tt.wantStatus)
			}
			if got.Code != CodeUnexpectedError {
				t.Errorf("code = %q, want UNEXPECTED_ERROR", got.Code)
			}
			if got.Message != tt.err.Error() {
				t.Errorf("message = %q", got.Message)
			}
		})
	}
}

func TestFromNil(t *testing.T) {
	got := From(nil)
	if got.Status != http.StatusInternalServerError || got.Code != CodeUnexpectedError {
		t.Errorf("From(nil) = %+v", got)
	}
}
