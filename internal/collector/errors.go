package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAdapterTimeout means the upstream call exceeded its deadline. Retryable.
	ErrAdapterTimeout = errors.New("adapter timeout")
	// ErrMalformedResponse means the provider answered with an unexpected shape. Retryable.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrProviderUnavailable covers transport failures, 5xx and rate limiting. Retryable.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrSymbolNotFound is a definitive per-symbol outcome. Not retried; the symbol is omitted.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrNoDataAvailable means every adapter in the waterfall was exhausted without quotes.
	ErrNoDataAvailable = errors.New("no data available")
)

// AdapterError attributes a failure to an adapter and optionally a symbol.
type AdapterError struct {
	Adapter string
	Symbol  string
	Kind    error // one of the sentinel errors above
	Err     error
}

func (e *AdapterError) Error() string {
	var b strings.Builder
	b.WriteString(e.Adapter)
	if e.Symbol != "" {
		b.WriteString(" [")
		b.WriteString(e.Symbol)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AdapterError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newAdapterError(adapter, symbol string, kind, err error) *AdapterError {
	return &AdapterError{Adapter: adapter, Symbol: symbol, Kind: kind, Err: err}
}

// IsRetryable reports whether the orchestrator should try the same adapter again.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrSymbolNotFound) {
		return false
	}
	return errors.Is(err, ErrAdapterTimeout) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify maps an arbitrary error raised during a call onto the taxonomy.
func classify(adapter, symbol string, err error) error {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrAdapterTimeout):
		return newAdapterError(adapter, symbol, ErrAdapterTimeout, err)
	case errors.Is(err, ErrSymbolNotFound):
		return newAdapterError(adapter, symbol, ErrSymbolNotFound, nil)
	case errors.Is(err, ErrMalformedResponse):
		return newAdapterError(adapter, symbol, ErrMalformedResponse, err)
	default:
		return newAdapterError(adapter, symbol, ErrProviderUnavailable, err)
	}
}

// NoDataError is returned when the waterfall for a dataset is exhausted.
type NoDataError struct {
	Dataset string
	Causes  []error
}

func (e *NoDataError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("%s: %v", e.Dataset, ErrNoDataAvailable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Dataset, ErrNoDataAvailable, errors.Join(e.Causes...))
}

func (e *NoDataError) Unwrap() error { return ErrNoDataAvailable }
