package domain

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a quiz session has not been created.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidConfig indicates a quiz configuration that cannot be generated.
	ErrInvalidConfig = errors.New("invalid quiz configuration")
	// ErrInvalidPhase is returned when a command does not apply to the current phase.
	ErrInvalidPhase = errors.New("command not allowed in current phase")
	// ErrOperationInFlight is returned while the same operation is still running.
	ErrOperationInFlight = errors.New("operation already in progress")
	// ErrCooldownActive blocks every command while the rate-limit cooldown runs.
	ErrCooldownActive = errors.New("rate-limit cooldown active")
	// ErrHintUnavailable is returned when the hint budget is spent or the kind is disabled.
	ErrHintUnavailable = errors.New("hint unavailable")
	// ErrQuestionAnswered is returned when the target question already has an answer.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrNothingSelected is returned when confirming without a provisional choice.
	ErrNothingSelected = errors.New("no option selected")
	// ErrIndexOutOfRange indicates an option or question index outside its bounds.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrStaleResponse is returned when a reply arrives for a run or question that has moved on.
	ErrStaleResponse = errors.New("stale response discarded")
	// ErrDeckNotFound indicates a missing or empty question deck.
	ErrDeckNotFound = errors.New("question deck not found")

	// ErrRateLimited signals quota exhaustion at the question source.
	ErrRateLimited = errors.New("question source rate limited")
	// ErrMissingCredential is returned before any call when no API key is configured.
	ErrMissingCredential = errors.New("api key not configured")
	// ErrMalformedResponse indicates a reply that does not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUpstream covers every other question source failure.
	ErrUpstream = errors.New("question source failure")
)

var rateLimitMarkers = []string{"quota", "429", "exceeded"}

// IsRateLimited reports whether err signals quota exhaustion, either as
// ErrRateLimited or through the upstream message text. Markers match
// case-sensitively, so "Quota" alone does not count.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	// "context deadline exceeded" is a local timeout, not a quota.
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
