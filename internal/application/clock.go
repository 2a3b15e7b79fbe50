package application

import (
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

var _ ports.Clock = SystemClock{}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns time.Since(t).
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }
