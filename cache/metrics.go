package cache

import "time"

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                      {}
func (NoopMetrics) Miss()                     {}
func (NoopMetrics) Load(time.Duration, error) {}
func (NoopMetrics) Evict(EvictReason)         {}

var _ Metrics = NoopMetrics{}
