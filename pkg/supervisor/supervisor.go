// Package supervisor runs a sketch on a lifecycle driver and blocks until the
// session signals completion.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/completion"
	"github.com/user/framesource/pkg/lifecycle"
	"github.com/user/framesource/pkg/ports"
)

// ErrTimeout is returned when the session did not complete within the
// configured timeout.
var ErrTimeout = errors.New("supervisor: session timed out")

// Options configures a Supervisor.
type Options struct {
	// Timeout bounds the whole session. Zero means no limit.
	Timeout time.Duration
	Logger  ports.Logger
}

// Supervisor starts a driver and waits on a completion signal.
type Supervisor struct {
	driver *lifecycle.Driver
	signal *completion.Signal
	opts   Options
	logger ports.Logger
}

// New creates a supervisor. The sketch passed to Run is expected to fire
// signal when it shuts down; the supervisor fires it too once the driver
// returns so Run never blocks forever.
func New(driver *lifecycle.Driver, signal *completion.Signal, opts Options) *Supervisor {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Supervisor{
		driver: driver,
		signal: signal,
		opts:   opts,
		logger: log.WithComponent("supervisor"),
	}
}

// Signal returns the completion signal being waited on.
func (s *Supervisor) Signal() *completion.Signal {
	return s.signal
}

// Run starts the driver with sketch and returns once completion has fired
// and the driver has returned.
func (s *Supervisor) Run(ctx context.Context, sketch lifecycle.Sketch) (lifecycle.Result, error) {
	parent := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var result lifecycle.Result
	eg := new(errgroup.Group)
	eg.Go(func() error {
		res, err := s.driver.Run(ctx, sketch)
		result = res
		if s.signal.FireWithError(err) {
			s.logger.Debug("Sketch did not signal completion; firing on driver exit")
		}
		return err
	})
	// The waiter reports whatever error the session recorded with the signal,
	// including one the sketch fired with while the driver returned cleanly.
	eg.Go(func() error {
		err := s.signal.Wait(context.WithoutCancel(ctx))
		s.logger.Debug("Completion signalled")
		return err
	})

	if err := eg.Wait(); err != nil {
		return result, err
	}
	// The driver may stop just short of the deadline, so a run interrupted
	// while the caller's context is still live counts as a timeout.
	if result.Interrupted && s.opts.Timeout > 0 && parent.Err() == nil {
		return result, fmt.Errorf("%w after %s", ErrTimeout, s.opts.Timeout)
	}
	return result, nil
}
