package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/arxivmind/arxivmind/pkg/models"
)

// Kind classifies a failure so the fallback orchestrator can decide
// whether the next candidate should be tried.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindRateLimited     Kind = "rate_limited"
	KindUpstream        Kind = "upstream_error"
	KindMalformed       Kind = "malformed_response"
	KindExhausted       Kind = "all_providers_exhausted"
	KindInvalidArgument Kind = "invalid_argument"
	KindNoResult        Kind = "no_result"
)

// Retryable reports whether a failure of this kind should advance the
// fallback loop to the next candidate.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindRateLimited, KindUpstream, KindMalformed:
		return true
	}
	return false
}

// AttemptStatus maps a failure kind to its attempt-log status.
func (k Kind) AttemptStatus() models.AttemptStatus {
	switch k {
	case KindTimeout:
		return models.AttemptTimeout
	case KindRateLimited:
		return models.AttemptRateLimited
	case KindMalformed:
		return models.AttemptMalformed
	default:
		return models.AttemptUpstream
	}
}

// CallError is the normalized failure shape every driver surfaces at its
// boundary. Provider response bodies are folded into Err; they never
// reach callers raw.
type CallError struct {
	Kind     Kind
	Provider string
	Model    string
	Status   int // HTTP status when one was received
	Err      error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s/%s: %s (status %d): %v", e.Provider, e.Model, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s: %v", e.Provider, e.Model, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, classifying untyped errors
// conservatively as upstream failures.
func KindOf(err error) Kind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUpstream
}

// InvalidArgument builds a caller-input error.
func InvalidArgument(format string, args ...any) error {
	return &CallError{Kind: KindInvalidArgument, Err: fmt.Errorf(format, args...)}
}

// classifyTransport turns an http.Client.Do error into a CallError.
func classifyTransport(provider, model string, err error) *CallError {
	kind := KindUpstream
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		kind = KindTimeout
	}
	return &CallError{Kind: kind, Provider: provider, Model: model, Err: err}
}

// classifyStatus turns a non-200 HTTP response into a CallError.
func classifyStatus(provider, model string, status int, body []byte) *CallError {
	kind := KindUpstream
	if status == 429 {
		kind = KindRateLimited
	}
	return &CallError{
		Kind:     kind,
		Provider: provider,
		Model:    model,
		Status:   status,
		Err:      fmt.Errorf("%s", truncateBody(body)),
	}
}

// malformed wraps a 200-but-unusable response.
func malformed(provider, model string, err error) *CallError {
	return &CallError{Kind: KindMalformed, Provider: provider, Model: model, Err: err}
}

// truncateBody keeps error messages bounded; upstream bodies can be huge.
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "…"
	}
	return string(body)
}
