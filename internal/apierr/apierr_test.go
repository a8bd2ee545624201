package apierr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cmc/internal/content"
)

func TestClassify_ByStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantKind    Kind
		wantRetry   bool
		wantRecover bool
		wantSev     Severity
	}{
		{"unauthorized", 401, KindAuth, false, true, SeverityHigh},
		{"forbidden", 403, KindAuth, false, true, SeverityHigh},
		{"not found", 404, KindNotFound, false, false, SeverityLow},
		{"gone", 410, KindNotFound, false, false, SeverityLow},
		{"bad request", 400, KindValidation, false, true, SeverityLow},
		{"unprocessable", 422, KindValidation, false, true, SeverityLow},
		{"request timeout", 408, KindNetwork, true, false, SeverityMedium},
		{"rate limited", 429, KindRateLimit, true, false, SeverityMedium},
		{"server error", 500, KindService, true, false, SeverityMedium},
		{"bad gateway", 502, KindService, true, false, SeverityMedium},
		{"unavailable", 503, KindService, true, false, SeverityMedium},
		{"teapot", 418, KindUnknown, true, false, SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &content.APIError{Status: tt.status, Code: "x", Message: "y"}
			got := Classify(err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantRetry, got.Retryable)
			assert.Equal(t, tt.wantRecover, got.Recoverable)
			assert.Equal(t, tt.wantSev, got.Severity)
			assert.NotEmpty(t, got.UserMessage)
		})
	}
}

func TestClassify_ByMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"network", errors.New("network is unreachable"), KindNetwork},
		{"timeout", errors.New("request timeout after 30s"), KindNetwork},
		{"connection refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"unauthorized", errors.New("unauthorized: token rejected"), KindAuth},
		{"rate limit", errors.New("rate limit exceeded for key"), KindRateLimit},
		{"not found", errors.New("item not found"), KindNotFound},
		{"validation", errors.New("validation failed: title required"), KindValidation},
		{"mystery", errors.New("flux capacitor desync"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
}

func TestClassify_UnknownIsRetryable(t *testing.T) {
	got := Classify(errors.New("flux capacitor desync"))
	assert.Equal(t, KindUnknown, got.Kind)
	assert.True(t, got.Retryable)
}

func TestClassify_PassThrough(t *testing.T) {
	orig := New(KindAuth, errors.New("token expired")).WithOp("update item", "posts", "item-1")

	again := Classify(orig)
	assert.Same(t, orig, again)

	// Also through a wrapping layer.
	wrapped := fmt.Errorf("while syncing: %w", orig)
	assert.Same(t, orig, Classify(wrapped))
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	got := Classify(context.DeadlineExceeded)
	assert.Equal(t, KindNetwork, got.Kind)
	assert.True(t, got.Retryable)
}

func TestClassify_RetryAfterCarried(t *testing.T) {
	err := &content.APIError{Status: 429, Code: "rate_limited", Message: "slow down", RetryAfter: 15 * time.Second}
	got := Classify(err)
	require.Equal(t, KindRateLimit, got.Kind)
	assert.Equal(t, 15*time.Second, got.RetryAfter)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestError_WithOpKeepsExisting(t *testing.T) {
	e := New(KindService, errors.New("boom")).WithOp("create item", "posts", "")
	e.WithOp("fetch page", "authors", "item-9")

	assert.Equal(t, "create item", e.Op)
	assert.Equal(t, "posts", e.Collection)
	assert.Equal(t, "item-9", e.ItemID) // was empty, so it fills in
}

func TestError_Message(t *testing.T) {
	e := New(KindNotFound, errors.New("gone")).WithOp("delete item", "posts", "item-3")
	assert.Equal(t, "delete item posts/item-3: gone (not_found)", e.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := &content.APIError{Status: 503, Code: "unavailable", Message: "maintenance"}
	e := Classify(cause)

	var ae *content.APIError
	require.True(t, errors.As(e, &ae))
	assert.Equal(t, 503, ae.Status)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&content.APIError{Status: 500}))
	assert.False(t, Retryable(&content.APIError{Status: 404}))
	assert.False(t, Retryable(nil))
}
