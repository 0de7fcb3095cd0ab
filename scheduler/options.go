package scheduler

import "time"

// Option configures a Scheduler at construction (spec.md §6).
type Option func(*config)

type config struct {
	maxWorkers        int
	memoryThresholdMB int
	waitTimeout       time.Duration
	sleepInterval     time.Duration
	rssProbe          func() (uint64, error)
}

func defaultConfig() config {
	return config{
		maxWorkers:        5,
		memoryThresholdMB: 1000,
		waitTimeout:       5 * time.Second,
		sleepInterval:     5 * time.Second,
	}
}

// WithMaxWorkers overrides the default of 5 workers per pool.
func WithMaxWorkers(n int) Option {
	return func(c *config) { c.maxWorkers = n }
}

// WithMemoryThresholdMB overrides the default 1000MB source-throttling
// cutoff (spec.md §5).
func WithMemoryThresholdMB(n int) Option {
	return func(c *config) { c.memoryThresholdMB = n }
}

// WithWaitTimeout overrides the bounded wait-for-completion timeout
// (spec.md §5, "typically 5s").
func WithWaitTimeout(d time.Duration) Option {
	return func(c *config) { c.waitTimeout = d }
}

// WithSleepInterval overrides the bounded sleep used on the external-wait
// path (spec.md §5, "typically 5s").
func WithSleepInterval(d time.Duration) Option {
	return func(c *config) { c.sleepInterval = d }
}

// WithRSSProbe overrides the resident-set-size probe. The default uses
// gopsutil against the current process; tests substitute a deterministic
// fake.
func WithRSSProbe(probe func() (uint64, error)) Option {
	return func(c *config) { c.rssProbe = probe }
}
