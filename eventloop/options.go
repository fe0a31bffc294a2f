package eventloop

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// Locker is the host-supplied lock guarding the timer queue. Any
// [sync.Locker] works; hosts without concurrency use [NoOpLocker].
type Locker = sync.Locker

// NoOpLocker satisfies [Locker] without doing anything, for strictly
// single-threaded hosts.
type NoOpLocker struct{}

func (NoOpLocker) Lock()   {}
func (NoOpLocker) Unlock() {}

// Option configures a [Loop] instance. Options are applied in order during
// [New]; nil options are skipped gracefully.
type Option func(*options)

type options struct {
	lock Locker
	log  *logiface.Logger[logiface.Event]
}

// WithLocker injects the lock guarding the timer queue. The default is a
// [sync.Mutex]; pass [NoOpLocker] for single-threaded use.
func WithLocker(lock Locker) Option {
	return func(o *options) {
		if lock != nil {
			o.lock = lock
		}
	}
}

// WithLogger attaches a structured logger to the loop. Scheduling, firing,
// relocation and reaping are logged at trace level and tick summaries at
// debug level. A nil logger (the default) disables logging entirely.
func WithLogger(log *logiface.Logger[logiface.Event]) Option {
	return func(o *options) {
		o.log = log
	}
}

func resolveOptions(opts []Option) *options {
	cfg := &options{
		lock: new(sync.Mutex),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}
