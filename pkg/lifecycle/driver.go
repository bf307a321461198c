// Package lifecycle drives a sketch through init, per-tick frame callbacks
// and shutdown at a target frame rate.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/ports"
)

// ErrFinished is returned by OnFrame to end the loop normally.
var ErrFinished = errors.New("lifecycle: sketch finished")

// Sketch is the host program driven by a Driver.
type Sketch interface {
	// OnInit runs once before the first tick. When it fails no tick runs,
	// but OnShutdown is still called.
	OnInit(ctx context.Context) error

	// OnFrame runs once per tick. Returning ErrFinished stops the loop
	// without error; any other error stops it with that error.
	OnFrame(ctx context.Context, tick Tick) error

	// OnShutdown runs exactly once after the loop ends.
	OnShutdown() error
}

// Tick identifies one frame callback.
type Tick struct {
	Number  int           // 0-based
	Elapsed time.Duration // since the first tick
}

// Options configures a Driver.
type Options struct {
	// FPS is the target tick rate. Zero or less runs unpaced.
	FPS float64

	// MaxTicks stops the loop after this many ticks. Zero means no limit.
	MaxTicks int

	Logger ports.Logger
}

// Result summarizes a finished run.
type Result struct {
	Ticks       int
	Elapsed     time.Duration
	Interrupted bool // the context ended the run
}

// ActualFPS returns the achieved tick rate.
func (r Result) ActualFPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ticks) / r.Elapsed.Seconds()
}

// Driver runs the lifecycle loop.
type Driver struct {
	opts   Options
	logger ports.Logger
}

// NewDriver creates a driver.
func NewDriver(opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Driver{opts: opts, logger: log.WithComponent("driver")}
}

func (d *Driver) limiter() *rate.Limiter {
	if d.opts.FPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(d.opts.FPS), 1)
}

// Run calls OnInit, then OnFrame once per tick until the sketch finishes,
// MaxTicks is reached, a callback fails or ctx ends, and finally OnShutdown.
// A context ending the run is reported through Result.Interrupted, not as an
// error.
func (d *Driver) Run(ctx context.Context, sketch Sketch) (res Result, err error) {
	defer func() {
		if shutdownErr := sketch.OnShutdown(); shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
		}
	}()

	if err := sketch.OnInit(ctx); err != nil {
		return res, err
	}

	pacer := d.limiter()
	var start time.Time
	for d.opts.MaxTicks <= 0 || res.Ticks < d.opts.MaxTicks {
		if err := pacer.Wait(ctx); err != nil {
			res.Interrupted = true
			break
		}
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		now := time.Now()
		if res.Ticks == 0 {
			start = now
		}
		tick := Tick{Number: res.Ticks, Elapsed: now.Sub(start)}

		err := sketch.OnFrame(ctx, tick)
		res.Ticks++
		res.Elapsed = time.Since(start)
		if errors.Is(err, ErrFinished) {
			break
		}
		if err != nil {
			return res, err
		}
	}

	if res.Interrupted {
		d.logger.Info("Interrupted, shutting down...")
	}
	return res, nil
}
