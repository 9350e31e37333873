package helpers

import (
	"errors"
	"fmt"
	"time"

	"nepse-data-server/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DataServerError struct {
	Message string
	Cause   error
}

func (e *DataServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DataServerError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ DataServerError }
type NetworkError struct{ DataServerError }
type DataSourceError struct{ DataServerError }
type DatabaseError struct{ DataServerError }

// ErrNotImplemented marks provider operations that have no live backend yet.
var ErrNotImplemented = errors.New("live NEPSE API integration is not yet implemented; " +
	"set simulation.provider to 'simulator'")

// ErrUnknownSymbol marks symbols the provider does not track.
var ErrUnknownSymbol = errors.New("unknown symbol")

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v",
			attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
