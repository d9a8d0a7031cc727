// Package suggest produces search autocomplete suggestions.
//
// Suggestions are best-effort decoration for the UI: any backend failure
// degrades to an empty list and the caller still gets a 200. The query
// length threshold keeps one- and two-keystroke noise away from the
// completion backend.
package suggest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

const (
	// minQueryLen is the shortest trimmed query worth completing.
	minQueryLen = 2

	defaultLimit = 5
	maxLimit     = 10
)

// Completer produces up to limit completions for a partial query.
type Completer interface {
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
}

// Result is the suggestion response shape. Suggestions is never nil so the
// empty case serializes as [].
type Result struct {
	Suggestions []string `json:"suggestions"`
	Query       string   `json:"query"`
}

// Service wraps a Completer with the threshold, limit, and degrade rules.
type Service struct {
	completer Completer
	log       *logging.Logger
	metrics   *monitoring.Metrics
}

// NewService creates a suggestion service.
func NewService(completer Completer, log *logging.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		completer: completer,
		log:       log,
		metrics:   metrics,
	}
}

// Suggestions returns completions for query. Queries shorter than the
// threshold never reach the backend; backend failures return the empty
// result rather than an error.
func (s *Service) Suggestions(ctx context.Context, query string, limit int) Result {
	result := Result{Suggestions: []string{}, Query: query}

	if len(strings.TrimSpace(query)) < minQueryLen {
		return result
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	timer := monitoring.NewTimer(s.metrics, "suggest", "completions")
	suggestions, err := s.completer.Suggest(ctx, query, limit)
	if err != nil {
		timer.Stop("error")
		s.metrics.RecordServiceError("suggest", "completions", string(errs.CodeOf(err)))
		s.log.Warn("suggestion backend failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return result
	}
	timer.Stop("ok")

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if len(suggestions) > 0 {
		result.Suggestions = suggestions
	}
	return result
}
