package executor

import "fmt"

// RetriesExhaustedError reports that every attempt in the budget failed.
// It unwraps to the last attempt's error so class checks still work.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }
