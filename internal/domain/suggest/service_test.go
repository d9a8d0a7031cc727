package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = monitoring.NewMetrics()

type fakeCompleter struct {
	calls   int
	queries []string
	limits  []int
	out     []string
	err     error
}

func (f *fakeCompleter) Suggest(_ context.Context, query string, limit int) ([]string, error) {
	f.calls++
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	return f.out, f.err
}

func newTestService(c *fakeCompleter) *Service {
	return NewService(c, logging.NewNop(), testMetrics)
}

func TestShortQuerySkipsBackend(t *testing.T) {
	for _, q := range []string{"", "a", " a ", "\t\n"} {
		c := &fakeCompleter{out: []string{"never"}}
		s := newTestService(c)

		got := s.Suggestions(context.Background(), q, 5)
		assert.Empty(t, got.Suggestions, "query %q", q)
		assert.Equal(t, q, got.Query)
		assert.Zero(t, c.calls, "query %q must not reach the backend", q)
	}
}

func TestSuggestionsPassThrough(t *testing.T) {
	c := &fakeCompleter{out: []string{"go tutorial", "go tour"}}
	s := newTestService(c)

	got := s.Suggestions(context.Background(), "go", 5)
	assert.Equal(t, []string{"go tutorial", "go tour"}, got.Suggestions)
	assert.Equal(t, "go", got.Query)
	require.Equal(t, 1, c.calls)
	assert.Equal(t, []string{"go"}, c.queries)
	assert.Equal(t, []int{5}, c.limits)
}

func TestLimitDefaultsAndCap(t *testing.T) {
	c := &fakeCompleter{out: []string{"x"}}
	s := newTestService(c)

	s.Suggestions(context.Background(), "go", 0)
	s.Suggestions(context.Background(), "go", -3)
	s.Suggestions(context.Background(), "go", 50)
	assert.Equal(t, []int{5, 5, 10}, c.limits)
}

func TestResultsTruncatedToLimit(t *testing.T) {
	c := &fakeCompleter{out: []string{"a", "b", "c", "d"}}
	s := newTestService(c)

	got := s.Suggestions(context.Background(), "go", 2)
	assert.Equal(t, []string{"a", "b"}, got.Suggestions)
}

func TestBackendFailureDegradesToEmpty(t *testing.T) {
	c := &fakeCompleter{err: errors.New("boom")}
	s := newTestService(c)

	got := s.Suggestions(context.Background(), "golang", 5)
	assert.Empty(t, got.Suggestions)
	assert.Equal(t, "golang", got.Query)
	assert.Equal(t, 1, c.calls)
}

func TestEmptyResultSerializesAsArray(t *testing.T) {
	s := newTestService(&fakeCompleter{})

	got := s.Suggestions(context.Background(), "a", 5)
	raw, err := sonic.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestions":[],"query":"a"}`, string(raw))
}
