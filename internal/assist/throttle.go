package assist

import (
	"context"

	"pricecase/internal/util"
)

// Throttled spaces out calls to the wrapped filler.
type Throttled struct {
	Filler  GapFiller
	Limiter *util.RateLimiter
}

func Throttle(filler GapFiller, requestsPerSecond int) *Throttled {
	return &Throttled{Filler: filler, Limiter: util.NewRateLimiter(requestsPerSecond)}
}

func (t *Throttled) FillGaps(ctx context.Context, text string, fields []string) (map[string]any, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Filler.FillGaps(ctx, text, fields)
}
