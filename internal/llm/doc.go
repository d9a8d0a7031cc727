// Package llm provides the completion backend client for search
// suggestions.
//
// The client speaks the OpenAI chat completions wire format, so any
// compatible backend works by pointing BaseURL at it. Outbound calls pass
// through a rate limiter and a circuit breaker; a tripped breaker rejects
// calls locally until the cool-down elapses.
package llm
