package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/nkoval/tradefeed/internal/model"
)

// Params narrows a fetch to a disclosure date range.
type Params struct {
	Start time.Time
	End   time.Time
}

// Fetcher is the contract every source module implements. Returning an
// empty slice with a nil error means "source had nothing" and is the
// orchestrator's signal to try a fallback; a *FetchError means the
// source itself failed and is treated as zero results, never as a fatal
// pipeline error.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, params Params) ([]model.FetchResult, error)
}

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	ErrNetwork ErrorKind = "network"
	ErrBlocked ErrorKind = "blocked"
	ErrParse   ErrorKind = "parse"
)

// FetchError wraps any failure inside a fetcher with its source and kind.
type FetchError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(source string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}
