package doapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/digitalocean/godo"
)

func apiErr(code int, message string) error {
	return &godo.ErrorResponse{
		Response: &http.Response{StatusCode: code},
		Message:  message,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantCode   int
		wantReason string
	}{
		{
			name:       "godo error response",
			err:        apiErr(404, "droplet not found"),
			wantMsg:    "droplet not found",
			wantCode:   404,
			wantReason: "Not Found",
		},
		{
			name:       "wrapped godo error",
			err:        fmt.Errorf("listing droplets: %w", apiErr(429, "rate limited")),
			wantMsg:    "rate limited",
			wantCode:   429,
			wantReason: "Too Many Requests",
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("connection refused"),
			wantMsg:    "connection refused",
			wantCode:   0,
			wantReason: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			if got.Message != tt.wantMsg || got.StatusCode != tt.wantCode || got.Reason != tt.wantReason {
				t.Errorf("Normalize() = %+v, want {%s %d %s}", got, tt.wantMsg, tt.wantCode, tt.wantReason)
			}
		})
	}

	if Normalize(nil) != nil {
		t.Error("Normalize(nil) must be nil")
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(apiErr(422, "SSH Key is already in use on your account")) {
		t.Error("422 already-in-use must be a duplicate")
	}
	if IsDuplicate(apiErr(422, "name is too long")) {
		t.Error("422 with unrelated message is not a duplicate")
	}
	if IsDuplicate(apiErr(409, "already in use")) {
		t.Error("duplicate detection is scoped to 422")
	}
	if IsDuplicate(fmt.Errorf("plain")) {
		t.Error("plain error is not a duplicate")
	}
}

func TestResolveToken(t *testing.T) {
	for _, name := range tokenEnvVars {
		t.Setenv(name, "")
	}

	if _, err := ResolveToken(""); err == nil {
		t.Fatal("expected error with no token anywhere")
	}

	if tok, err := ResolveToken("explicit"); err != nil || tok != "explicit" {
		t.Fatalf("explicit token wins: got %q, %v", tok, err)
	}

	// Later names in the chain lose to earlier ones.
	t.Setenv("DO_API_TOKEN", "third")
	t.Setenv("DIGITALOCEAN_TOKEN", "second")
	if tok, _ := ResolveToken(""); tok != "second" {
		t.Fatalf("env priority: got %q, want %q", tok, "second")
	}
	t.Setenv("DIGITALOCEAN_ACCESS_TOKEN", "first")
	if tok, _ := ResolveToken(""); tok != "first" {
		t.Fatalf("env priority: got %q, want %q", tok, "first")
	}
}
