package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   200,
		Timeout:     2 * time.Second,
	}
}

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := sonic.Marshal(resp)
	return string(b)
}

func TestSuggestParsesArray(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, sonic.Unmarshal(raw, &gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`["go tutorial","go tour","go playground"]`)))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	got, err := c.Suggest(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"go tutorial", "go tour", "go playground"}, got)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, 0.7, gotReq.Temperature)
	assert.Equal(t, 200, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, `"go"`)
}

func TestSuggestExtractsEmbeddedArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("Here are some ideas:\n[\"rust book\", \"rust by example\"]\nEnjoy!")))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	got, err := c.Suggest(context.Background(), "rust", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"rust book", "rust by example"}, got)
}

func TestSuggestNonArrayContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("I cannot provide suggestions for that.")))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	got, err := c.Suggest(context.Background(), "weird", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggestTruncatesToLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`["a","b","c","d","e"]`)))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	got, err := c.Suggest(context.Background(), "letters", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSuggestWithoutKey(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.APIKey = ""
	c := New(cfg, logging.NewNop())

	_, err := c.Suggest(context.Background(), "go", 5)
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
}

func TestSuggestBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	_, err := c.Suggest(context.Background(), "go", 5)
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
}

func TestSuggestBreakerTrips(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), logging.NewNop())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.Suggest(ctx, "go", 5)
		require.Error(t, err)
	}
	require.Equal(t, int64(5), hits.Load())

	// The open breaker rejects locally without touching the backend.
	_, err := c.Suggest(ctx, "go", 5)
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
	assert.Equal(t, int64(5), hits.Load())
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"bare array", `["a","b"]`, []string{"a", "b"}},
		{"whitespace", "  [\"a\"]  ", []string{"a"}},
		{"code fence", "```json\n[\"a\",\"b\"]\n```", []string{"a", "b"}},
		{"prose wrapped", `Sure: ["x"] done`, []string{"x"}},
		{"empty array", `[]`, []string{}},
		{"no array", "nothing here", nil},
		{"object", `{"a":1}`, nil},
		{"unbalanced", "[oops", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArray(tt.content))
		})
	}
}
