package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	got := Fallback("docker", 5)
	want := []string{
		"docker tutorial",
		"docker example",
		"docker documentation",
		"how to docker",
		"docker guide",
	}
	assert.Equal(t, want, got)
}

func TestFallbackLimit(t *testing.T) {
	got := Fallback("docker", 2)
	assert.Equal(t, []string{"docker tutorial", "docker example"}, got)
}

func TestSuggestionsShortQuery(t *testing.T) {
	p := New(Config{}, nil)

	assert.Empty(t, p.Suggestions(context.Background(), "", 5))
	assert.Empty(t, p.Suggestions(context.Background(), "a", 5))
	assert.Empty(t, p.Suggestions(context.Background(), "  a  ", 5))
}

func TestSuggestionsWithoutRemote(t *testing.T) {
	p := New(Config{}, nil)

	got := p.Suggestions(context.Background(), "golang", 5)
	assert.Equal(t, Fallback("golang", 5), got)
}

func TestSuggestionsRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"[\"go routines\", \"go generics\"]"}}]}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, APIKey: "test", Model: "gpt-4o-mini", Timeout: 2 * time.Second}, nil)

	got := p.Suggestions(context.Background(), "go", 5)
	assert.Equal(t, []string{"go routines", "go generics"}, got)
}

func TestSuggestionsRemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, Timeout: 2 * time.Second}, nil)

	got := p.Suggestions(context.Background(), "golang", 5)
	assert.Equal(t, Fallback("golang", 5), got)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "bare array",
			content: `["a", "b"]`,
			want:    []string{"a", "b"},
		},
		{
			name:    "surrounded by prose",
			content: "Here are the suggestions:\n[\"a\", \"b\"]\nHope that helps!",
			want:    []string{"a", "b"},
		},
		{
			name:    "no array",
			content: "sorry, I cannot help with that",
			wantErr: true,
		},
		{
			name:    "malformed array",
			content: `["a", b]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseList(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
