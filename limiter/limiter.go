// Package limiter 控制两次请求之间的礼貌性延迟
package limiter

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMinDelay = 200 * time.Millisecond
	DefaultMaxDelay = 600 * time.Millisecond
)

type Limiter interface {
	// Wait 阻塞到允许发出下一次请求，ctx 取消时立即返回 ctx.Err()
	Wait(ctx context.Context) error
}

// Jitter 在 [Min, Max) 之间随机等待
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

func NewJitter(min, max time.Duration) *Jitter {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Jitter{Min: min, Max: max}
}

func (j *Jitter) Wait(ctx context.Context) error {
	return sleep(ctx, j.next())
}

func (j *Jitter) next() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)))
}

// Token 令牌桶限速
type Token struct {
	limiter *rate.Limiter
}

// NewToken rps <= 0 时不限速
func NewToken(rps float64, burst int) *Token {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Token{limiter: rate.NewLimiter(limit, burst)}
}

func (t *Token) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Chain 依次等待每个 Limiter
type Chain []Limiter

func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

type nop struct{}

func (nop) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Nop 不等待，只检查 ctx
func Nop() Limiter {
	return nop{}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
