package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time and timer scheduling so debounced work can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented f from running.
	Stop() bool
}

var Module = fx.Module("clock",
	fx.Provide(New),
)

type realClock struct{}

func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
