// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers, retry logic, and per-cycle capability
// budgets to ensure system resilience in the face of failures.
//
// The package supports:
//   - Circuit breakers for external API calls (Claude, OpenAI, RSS feeds)
//   - Retry logic with exponential backoff and jitter
//   - Per-cycle call and spend budgets for pipeline capabilities
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("my-service"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callExternalService()
//	})
//
//	retryConfig := retry.DefaultConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
