package resilience

import (
	"time"

	"github.com/sells-group/audit-cli/internal/config"
)

// FromConfig builds breaker settings from the resilience config section.
// Only transient failures count toward opening a circuit.
func FromConfig(cfg config.ResilienceConfig) BreakerConfig {
	out := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		out.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		out.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	out.ShouldTrip = IsTransient
	return out
}
