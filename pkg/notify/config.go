package notify

import "time"

// Config holds the tuning knobs for the dispatch pipeline.
type Config struct {
	MaxAttempts     int8          `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"5"`        // MaxAttempts caps dispatch tries per record before it is forced to failed.
	BackoffBase     time.Duration `env:"NOTIFY_BACKOFF_BASE" envDefault:"30s"`      // BackoffBase is the retry delay after the first transient failure.
	BackoffCeiling  time.Duration `env:"NOTIFY_BACKOFF_CEILING" envDefault:"1h"`    // BackoffCeiling caps the exponential backoff curve.
	DispatchTimeout time.Duration `env:"NOTIFY_DISPATCH_TIMEOUT" envDefault:"10s"`  // DispatchTimeout bounds a single transport invocation.
	MaxConcurrent   int           `env:"NOTIFY_MAX_CONCURRENT" envDefault:"10"`     // MaxConcurrent bounds parallel dispatches within one processing run.
	LockTimeout     time.Duration `env:"NOTIFY_LOCK_TIMEOUT" envDefault:"5m"`       // LockTimeout is how long a claim holds a record before it may be reclaimed.
}
