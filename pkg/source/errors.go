package source

import "fmt"

// SourceUnavailableError is fatal to a sync run: the external system could
// not be reached, timed out, or answered with a non-2xx status. The run
// aborts with no warehouse mutation; the scheduler retries the next tick.
type SourceUnavailableError struct {
	Source string
	Status int // 0 when the failure happened below HTTP
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source %s unavailable: http %d", e.Source, e.Status)
	}
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// PaginationError is fatal to a sync run: a cursor loop exceeded the
// configured page bound without the source reporting a final page.
type PaginationError struct {
	Source   string
	MaxPages int
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("source %s pagination exceeded %d pages without completing", e.Source, e.MaxPages)
}

// RecordParseError is a per-record failure inside an adapter. It is absorbed
// by Normalize (skip, log, count) and never escapes to the caller.
type RecordParseError struct {
	Source   string
	RecordID string
	Err      error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("source %s record %s: %v", e.Source, e.RecordID, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }
