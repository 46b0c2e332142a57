// Package clock provides the token manager's notion of "now", adjustable
// by a server-clock offset so callers can express clock-skew compensation
// without sprinkling time.Now() calls that tests can't control.
package clock

import "time"

// Clock is the capability every time-sensitive component depends on,
// instead of calling time.Now() directly.
type Clock interface {
	// Now returns the current time, adjusted by whatever server offset
	// this Clock was configured with.
	Now() time.Time

	// NowUnix is a convenience wrapper returning Now().Unix().
	NowUnix() int64
}

// Real is a Clock backed by the wall clock, with an optional offset
// representing how far the local clock trails (positive) or leads
// (negative) the server's clock.
type Real struct {
	// Offset is added to time.Now() on every call. A positive Offset
	// means the local clock is behind the server and Now() should
	// report a later time to compensate.
	Offset time.Duration
}

// New returns a Real clock with the given server offset.
func New(offset time.Duration) *Real {
	return &Real{Offset: offset}
}

func (c *Real) Now() time.Time {
	return time.Now().Add(c.Offset)
}

func (c *Real) NowUnix() int64 {
	return c.Now().Unix()
}
