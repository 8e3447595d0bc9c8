package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"syriahub-gateway/middleware/ratelimit/domain"
)

func TestHeaders_Allowed(t *testing.T) {
	h := Headers(domain.Result{
		Success:   true,
		Remaining: 7,
		ResetAt:   time.UnixMilli(1_700_000_000_000),
		Limit:     10,
	})

	assert.Equal(t, "10", h.Get(HeaderLimit))
	assert.Equal(t, "7", h.Get(HeaderRemaining))
	assert.Equal(t, "1700000000", h.Get(HeaderReset))
	assert.Empty(t, h.Values(HeaderRetryAfter))
}

func TestHeaders_DeniedCarriesRetryAfter(t *testing.T) {
	h := Headers(domain.Result{
		Success:    false,
		Remaining:  0,
		ResetAt:    time.UnixMilli(1_700_000_000_001),
		RetryAfter: 42,
	})

	assert.Equal(t, "0", h.Get(HeaderRemaining))
	assert.Equal(t, "1700000001", h.Get(HeaderReset), "reset rounds up to the next second")
	assert.Equal(t, "42", h.Get(HeaderRetryAfter))
	assert.Empty(t, h.Values(HeaderLimit))
}
