package entity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"stocknotifier/internal/domain/valueobject"
)

// MarketError is a typed failure from the market-data provider or from item
// validation. It carries an ErrorKind and an optional HTTP-like status code,
// which is all the continuation engine ever inspects.
type MarketError struct {
	Kind       valueobject.ErrorKind
	StatusCode int
	Symbol     string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *MarketError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Symbol != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Symbol)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *MarketError) Unwrap() error {
	return e.Cause
}

// NewMarketError creates a MarketError for the given kind.
func NewMarketError(kind valueobject.ErrorKind, symbol, message string, cause error) *MarketError {
	return &MarketError{Kind: kind, Symbol: symbol, Message: message, Cause: cause}
}

// NotFoundError reports data unavailable for a symbol (possibly delisted).
func NotFoundError(symbol, message string) *MarketError {
	return &MarketError{Kind: valueobject.ErrorKindNotFound, StatusCode: 404, Symbol: symbol, Message: message}
}

// RateLimitError reports provider throttling.
func RateLimitError(symbol, message string) *MarketError {
	return &MarketError{Kind: valueobject.ErrorKindRateLimited, StatusCode: 429, Symbol: symbol, Message: message}
}

// KindOf resolves the error kind for an arbitrary error. Typed MarketErrors
// win; context cancellation and net timeouts are recognized next; message
// heuristics are the last resort so that untyped collaborator errors still
// classify usefully.
func KindOf(err error) valueobject.ErrorKind {
	if err == nil {
		return valueobject.ErrorKindUnknown
	}

	var marketErr *MarketError
	if errors.As(err, &marketErr) {
		return marketErr.Kind
	}

	if errors.Is(err, context.Canceled) {
		return valueobject.ErrorKindUserCancellation
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return valueobject.ErrorKindNetworkTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return valueobject.ErrorKindNetworkTransient
		}
		return valueobject.ErrorKindNetworkTransient
	}

	return kindFromMessage(err.Error())
}

// kindFromMessage falls back to message patterns for untyped errors.
func kindFromMessage(msg string) valueobject.ErrorKind {
	msg = strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return valueobject.ErrorKindRateLimited
	case strings.Contains(msg, "not found") || strings.Contains(msg, "delisted") || strings.Contains(msg, "404"):
		return valueobject.ErrorKindNotFound
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "network"):
		return valueobject.ErrorKindNetworkTransient
	case strings.Contains(msg, "out of memory") || strings.Contains(msg, "no space"):
		return valueobject.ErrorKindResourceExhaustion
	case strings.Contains(msg, "invalid argument") || strings.Contains(msg, "nil pointer"):
		return valueobject.ErrorKindProgrammingDefect
	case strings.Contains(msg, "validation") || strings.Contains(msg, "malformed"):
		return valueobject.ErrorKindValidation
	default:
		return valueobject.ErrorKindUnknown
	}
}

// StatusCodeOf returns the status code attached to a typed error, or 0.
func StatusCodeOf(err error) int {
	var marketErr *MarketError
	if errors.As(err, &marketErr) {
		return marketErr.StatusCode
	}
	return 0
}

// SymbolOf returns the symbol attached to a typed error, or "".
func SymbolOf(err error) string {
	var marketErr *MarketError
	if errors.As(err, &marketErr) {
		return marketErr.Symbol
	}
	return ""
}
