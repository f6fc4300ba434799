package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. It is simpler than
// AdaptiveLimiter and jitters by the scheduler's timer resolution.
type TickerLimiter struct {
	frame  time.Duration
	ticker *time.Ticker
}

func NewTickerLimiter(frame time.Duration) *TickerLimiter {
	return &TickerLimiter{
		frame:  frame,
		ticker: time.NewTicker(frame),
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.frame)
}

// Stop releases the ticker.
func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
