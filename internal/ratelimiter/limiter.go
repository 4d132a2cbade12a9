package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ChannelLimiters holds one token bucket per notification channel id,
// created the first time a channel is seen. Burst equals the rate so a
// quiet channel cannot save up more than one second of deliveries.
type ChannelLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates a ChannelLimiters with ratePerSec tokens per second per channel.
func New(ratePerSec int) *ChannelLimiters {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &ChannelLimiters{
		limit:    rate.Limit(ratePerSec),
		burst:    ratePerSec,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the channel's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, channelID string) error {
	return cl.limiter(channelID).Wait(ctx)
}

func (cl *ChannelLimiters) limiter(channelID string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	l, ok := cl.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(cl.limit, cl.burst)
		cl.limiters[channelID] = l
	}
	return l
}
