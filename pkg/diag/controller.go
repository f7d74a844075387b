package diag

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

const (
	// DefaultPause separates consecutive write iterations.
	DefaultPause = 100 * time.Millisecond
	// DefaultIterations is used when no count is given.
	DefaultIterations = 1
)

// Controller repeats the write step of a Sequencer with a fixed pause between
// iterations.
type Controller struct {
	seq   *Sequencer
	pause time.Duration
	sleep func(time.Duration)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPause sets the pause between consecutive iterations.
func WithPause(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.pause = d
		}
	}
}

// WithSleeper replaces time.Sleep, mainly for tests.
func WithSleeper(sleep func(time.Duration)) ControllerOption {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewController wraps seq.
func NewController(seq *Sequencer, opts ...ControllerOption) *Controller {
	c := &Controller{
		seq:   seq,
		pause: DefaultPause,
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pause returns the configured pause between iterations.
func (c *Controller) Pause() time.Duration { return c.pause }

// Iterate sends b n times, yielding one result per iteration in order. The
// pause runs between consecutive iterations only, so n iterations sleep n-1
// times. The sequence can be ranged over once; later ranges yield nothing.
// Stopping the range early skips the remaining iterations.
func (c *Controller) Iterate(b byte, n int) iter.Seq[TransferResult] {
	consumed := false
	return func(yield func(TransferResult) bool) {
		if consumed {
			return
		}
		consumed = true
		for i := 1; i <= n; i++ {
			if i > 1 && c.pause > 0 {
				c.sleep(c.pause)
			}
			if !yield(c.seq.Send(i, b)) {
				return
			}
		}
	}
}

// Summary tallies iteration outcomes for reporting.
type Summary struct {
	Sent   int
	Failed int
	errs   []error
}

// Add records r.
func (s *Summary) Add(r TransferResult) {
	if r.OK() {
		s.Sent++
		return
	}
	s.Failed++
	s.errs = append(s.errs, fmt.Errorf("iteration %d: %w", r.Iteration, r.Err))
}

// Total is the number of iterations recorded.
func (s *Summary) Total() int { return s.Sent + s.Failed }

// Err joins the failures, or returns nil when every iteration succeeded.
func (s *Summary) Err() error {
	return errors.Join(s.errs...)
}
