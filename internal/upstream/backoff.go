package upstream

import (
	"math"
	"math/rand"
	"time"
)

func retryBackoff(attempt int) time.Duration {
	base := 250 * time.Millisecond

	capDelay := 2 * time.Second
	// attempt=0 => 250ms
	// attempt=1 => 500ms
	// attempt=2 => 1s

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay {
		delay = capDelay
	}

	// small jitter (0–100ms) to avoid hammering a recovering upstream
	delay += time.Duration(rand.Intn(100)) * time.Millisecond
	return delay
}
