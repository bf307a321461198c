package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framesource/pkg/completion"
	"github.com/user/framesource/pkg/lifecycle"
)

type countingSketch struct {
	signal    *completion.Signal
	frames    atomic.Int32
	stopAfter int32
	failErr   error
	fireErr   error
	fire      bool
}

func (s *countingSketch) OnInit(ctx context.Context) error { return nil }

func (s *countingSketch) OnFrame(ctx context.Context, tick lifecycle.Tick) error {
	n := s.frames.Add(1)
	if s.failErr != nil {
		return s.failErr
	}
	if s.stopAfter > 0 && n >= s.stopAfter {
		return lifecycle.ErrFinished
	}
	return nil
}

func (s *countingSketch) OnShutdown() error {
	if s.fire {
		s.signal.FireWithError(s.fireErr)
	}
	return nil
}

func TestRunWaitsForCompletion(t *testing.T) {
	signal := completion.New()
	sketch := &countingSketch{signal: signal, stopAfter: 3, fire: true}
	sup := New(lifecycle.NewDriver(lifecycle.Options{FPS: 200}), signal, Options{})

	res, err := sup.Run(context.Background(), sketch)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ticks)
	assert.True(t, signal.Fired())
	assert.Same(t, signal, sup.Signal())
}

func TestRunFiresWhenSketchDoesNot(t *testing.T) {
	signal := completion.New()
	sketch := &countingSketch{signal: signal, stopAfter: 2}
	sup := New(lifecycle.NewDriver(lifecycle.Options{}), signal, Options{})

	_, err := sup.Run(context.Background(), sketch)
	require.NoError(t, err)
	assert.True(t, signal.Fired())
}

func TestRunReportsErrorFiredBySketch(t *testing.T) {
	lost := errors.New("output lost")
	signal := completion.New()
	sketch := &countingSketch{signal: signal, stopAfter: 2, fire: true, fireErr: lost}
	sup := New(lifecycle.NewDriver(lifecycle.Options{}), signal, Options{})

	res, err := sup.Run(context.Background(), sketch)
	assert.ErrorIs(t, err, lost)
	assert.Equal(t, 2, res.Ticks)
	assert.ErrorIs(t, signal.Wait(context.Background()), lost)
}

func TestRunReportsSketchError(t *testing.T) {
	boom := errors.New("read failed")
	signal := completion.New()
	sketch := &countingSketch{signal: signal, failErr: boom, fire: true}
	sup := New(lifecycle.NewDriver(lifecycle.Options{}), signal, Options{})

	_, err := sup.Run(context.Background(), sketch)
	assert.ErrorIs(t, err, boom)
	assert.True(t, signal.Fired())
}

func TestRunTimeout(t *testing.T) {
	signal := completion.New()
	sketch := &countingSketch{signal: signal, fire: true}
	sup := New(lifecycle.NewDriver(lifecycle.Options{FPS: 100}), signal, Options{Timeout: 50 * time.Millisecond})

	res, err := sup.Run(context.Background(), sketch)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, res.Interrupted)
	assert.True(t, signal.Fired())
}

func TestRunParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	signal := completion.New()
	sketch := &countingSketch{signal: signal}
	sup := New(lifecycle.NewDriver(lifecycle.Options{FPS: 100}), signal, Options{})

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	res, err := sup.Run(ctx, sketch)
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Greater(t, sketch.frames.Load(), int32(0))
}
