/*
Package resilience provides a circuit breaker for outbound dependencies.

# Overview

This package guards calls to backends that can die or hang, most notably
the completion backend behind search suggestions. Once a dependency has
failed enough times in a row the breaker opens and rejects calls
immediately, keeping request budget and rate-limit tokens away from a dead
backend.

# States

A breaker is closed in normal operation. Failures counted by ReadyToTrip
open it; after Timeout it goes half-open and admits up to MaxRequests
probes. A probe failure re-opens it, a full streak of probe successes
closes it:

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[probes ok]-> Closed
	                           ^                    |
	                           +---[probe fails]----+

# Usage

	breaker := resilience.New("llm", resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("breaker state changed", zap.String("breaker", name))
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// degrade without waiting on the backend
	}
*/
package resilience
