package discord

import (
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/infra/metrics"
)

func (r *Router) step(label string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		metrics.CommandDuration.WithLabelValues(label).Observe(d.Seconds())
		r.log.Debug().Str("step", label).Dur("took", d).Msg("trace")
	}
}
