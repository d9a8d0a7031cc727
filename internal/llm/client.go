package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/resilience"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

const systemPrompt = "You are a search suggestion assistant. Given a partial search query, " +
	"provide relevant autocomplete suggestions. Return ONLY a JSON array of strings " +
	"with suggested completions. No explanations, just the array."

// Config describes the OpenAI-compatible completion backend.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond int
}

// Client calls an OpenAI-compatible chat completions endpoint with retry,
// rate limiting, and circuit breaker protection.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	cfg     Config
	log     *logging.Logger
}

// New creates a completion client. The breaker trips after repeated
// consecutive failures so a dead backend stops consuming request budget.
func New(cfg Config, log *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil
	// A delivered response is never retried; backend errors count against
	// the breaker exactly once.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	rc.SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	breaker := resilience.New("llm", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("completion breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}

	return &Client{
		resty:   rc,
		limiter: limiter,
		breaker: breaker,
		cfg:     cfg,
		log:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest asks the model for up to limit completions of query. A reply that
// contains no JSON array yields an empty slice, not an error; transport and
// backend failures are errors for the caller to degrade on.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, errs.New(errs.Unavailable, "completion backend not configured")
	}
	if c.breaker.State() == resilience.StateOpen {
		return nil, errs.Wrap(errs.Unavailable, "completion backend", resilience.ErrCircuitOpen)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "completion rate limit", err)
	}

	body, err := sonic.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Provide %d search suggestions for: %q", limit, query)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "encode completion request", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetBody(body).
			Post("/chat/completions")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("completion backend returned %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errs.Wrap(errs.Timeout, "completion backend", err)
		}
		return nil, errs.Wrap(errs.Unavailable, "completion backend", err)
	}

	var parsed chatResponse
	resp := result.(*resty.Response)
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "decode completion response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errs.New(errs.Unavailable, "completion response had no choices")
	}

	suggestions := extractArray(parsed.Choices[0].Message.Content)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// extractArray pulls a JSON string array out of model output. Models asked
// for bare JSON still wrap it in prose or code fences often enough that the
// first bracketed span is tried before giving up.
func extractArray(content string) []string {
	trimmed := strings.TrimSpace(content)

	var out []string
	if strings.HasPrefix(trimmed, "[") {
		if err := sonic.Unmarshal([]byte(trimmed), &out); err == nil {
			return out
		}
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		if err := sonic.Unmarshal([]byte(trimmed[start:end+1]), &out); err == nil {
			return out
		}
	}
	return nil
}
