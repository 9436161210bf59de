package worker

import (
	"time"
)

// RetryPolicy - экспоненциальная задержка между попытками доставки.
type RetryPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Initial: 2 * time.Second, Max: 5 * time.Minute, MaxAttempts: 8}
}

// Backoff возвращает задержку перед попыткой attempt+1; attempt считается с 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Exhausted - попытки закончились, временная ошибка становится постоянной.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
