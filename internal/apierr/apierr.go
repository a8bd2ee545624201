// Package apierr classifies remote content API failures into a closed
// taxonomy the console can act on: retry, re-authenticate, ask the user
// to fix input, or give up. Classification happens exactly once, at the
// retry boundary; an already classified error passes through unchanged.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
)

// Kind identifies the failure category.
type Kind string

const (
	KindAuth       Kind = "authentication"
	KindNetwork    Kind = "network"
	KindRateLimit  Kind = "rate_limited"
	KindService    Kind = "service_unavailable"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// Severity ranks how alarming a failure is to the operator.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Error is a classified content API failure. Kind decides retry and
// recovery behavior; Op, Collection and ItemID say what was being done.
type Error struct {
	Kind        Kind
	Severity    Severity
	Retryable   bool
	Recoverable bool   // the user can recover: re-auth or corrected input
	UserMessage string // console-facing summary

	Op         string
	Collection string
	ItemID     string

	RetryAfter time.Duration // rate-limit hint, zero when absent
	Err        error         // underlying cause
}

func (e *Error) Error() string {
	msg := e.UserMessage
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	}
	target := e.Collection
	if e.ItemID != "" {
		target = models.ItemKey(e.Collection, e.ItemID)
	}
	if target == "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s (%s)", e.Op, target, msg, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// WithOp attaches operation context. Fields already set are kept.
func (e *Error) WithOp(op, collection, itemID string) *Error {
	if e.Op == "" {
		e.Op = op
	}
	if e.Collection == "" {
		e.Collection = collection
	}
	if e.ItemID == "" {
		e.ItemID = itemID
	}
	return e
}

// traits are the per-kind classification defaults.
type traits struct {
	severity    Severity
	retryable   bool
	recoverable bool
	userMessage string
}

var kindTraits = map[Kind]traits{
	KindAuth:       {SeverityHigh, false, true, "Your session is no longer valid. Sign in again to continue."},
	KindNetwork:    {SeverityMedium, true, false, "Couldn't reach the content API. Check your connection."},
	KindRateLimit:  {SeverityMedium, true, false, "The content API is rate limiting requests."},
	KindService:    {SeverityMedium, true, false, "The content API is having trouble right now."},
	KindNotFound:   {SeverityLow, false, false, "That record no longer exists on the server."},
	KindValidation: {SeverityLow, false, true, "The server rejected the submitted fields."},
	KindUnknown:    {SeverityMedium, true, false, "Something went wrong talking to the content API."},
}

// New builds a classified error of the given kind around err.
func New(kind Kind, err error) *Error {
	t, ok := kindTraits[kind]
	if !ok {
		kind = KindUnknown
		t = kindTraits[KindUnknown]
	}
	return &Error{
		Kind:        kind,
		Severity:    t.severity,
		Retryable:   t.retryable,
		Recoverable: t.recoverable,
		UserMessage: t.userMessage,
		Err:         err,
	}
}

// Classify converts an arbitrary failure into a classified *Error.
// Order of precedence: already classified errors pass through, then
// structured API errors by HTTP status, then transport errors, then
// message substrings. Anything unrecognized is KindUnknown, which is
// retryable.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var ae *content.APIError
	if errors.As(err, &ae) {
		return fromStatus(ae, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return New(KindNetwork, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindNetwork, err)
	}

	return fromMessage(err)
}

func fromStatus(ae *content.APIError, err error) *Error {
	var kind Kind
	switch {
	case ae.Status == 401 || ae.Status == 403:
		kind = KindAuth
	case ae.Status == 404 || ae.Status == 410:
		kind = KindNotFound
	case ae.Status == 400 || ae.Status == 422:
		kind = KindValidation
	case ae.Status == 408:
		kind = KindNetwork
	case ae.Status == 429:
		kind = KindRateLimit
	case ae.Status >= 500:
		kind = KindService
	default:
		kind = KindUnknown
	}

	out := New(kind, err)
	if kind == KindRateLimit {
		out.RetryAfter = ae.RetryAfter
	}
	return out
}

func fromMessage(err error) *Error {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "forbidden", "invalid token", "authentication"):
		return New(KindAuth, err)
	case containsAny(msg, "rate limit", "too many requests"):
		return New(KindRateLimit, err)
	case containsAny(msg, "network", "timeout", "timed out", "deadline",
		"connection refused", "connection reset", "no such host", "broken pipe"):
		return New(KindNetwork, err)
	case strings.Contains(msg, "not found"):
		return New(KindNotFound, err)
	case strings.Contains(msg, "validation"):
		return New(KindValidation, err)
	default:
		return New(KindUnknown, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	return Classify(err).Kind
}
