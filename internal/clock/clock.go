package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock time so batch jobs and window math can be
// tested against a fixed instant.
type Clock interface {
	Now() time.Time
}

var Module = fx.Provide(NewSystemClock)

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
