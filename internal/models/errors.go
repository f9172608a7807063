package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyPortfolio = errors.New("portfolio has no assets")
	ErrProvider       = errors.New("provider failure")
)

// NotFoundError is returned when a scenario or portfolio id does not resolve.
type NotFoundError struct {
	Kind string // "scenario", "portfolio", "run"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// EmptyPortfolioError is returned when a computation needs at least one asset.
type EmptyPortfolioError struct {
	PortfolioID string
}

func (e *EmptyPortfolioError) Error() string {
	if e.PortfolioID == "" {
		return ErrEmptyPortfolio.Error()
	}
	return fmt.Sprintf("portfolio '%s' has no assets", e.PortfolioID)
}

func (e *EmptyPortfolioError) Is(target error) bool {
	return target == ErrEmptyPortfolio
}

// ProviderError wraps a price or metadata fetch failure. The engine recovers
// from these locally and never propagates them to callers.
type ProviderError struct {
	Provider string
	Op       string
	Symbol   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// RateLimitError is a ProviderError raised when the provider throttles us.
// RetryAfter is a backoff hint, longer than the normal inter-request delay.
type RateLimitError struct {
	ProviderError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (rate limited, retry after %s)", e.ProviderError.Error(), e.RetryAfter)
}

// Unwrap exposes the embedded ProviderError so errors.As(err, **ProviderError) succeeds.
func (e *RateLimitError) Unwrap() error { return &e.ProviderError }
