package engine

import (
	"fmt"
	"log/slog"
	"math"
)

// Default tuning for the wheel response curve.
const (
	DefaultZoomSpeed           = 1.2
	DefaultPowerFactor         = 1.0
	DefaultTransitionThreshold = 0.1
)

// Options is the plain configuration of a Controller.
type Options struct {
	// ZoomSpeed is the multiplicative step of one discrete zoom action.
	ZoomSpeed float64
	// PowerFactor shapes the wheel response: ratio = ZoomSpeed^(sign(d)*|d|^PowerFactor).
	PowerFactor float64
	// TransitionThreshold is the wheel exponent magnitude above which a
	// change is flagged as a candidate for an animated transition.
	TransitionThreshold float64
	// Stretch is the fit policy used by AutoFit.
	Stretch StretchMode
	// EnableConstraints makes every commit clamp into Bounds.
	EnableConstraints bool
	Bounds            Bounds
}

// DefaultOptions returns unconstrained options with the default wheel curve.
func DefaultOptions() Options {
	return Options{
		ZoomSpeed:           DefaultZoomSpeed,
		PowerFactor:         DefaultPowerFactor,
		TransitionThreshold: DefaultTransitionThreshold,
		Stretch:             StretchNone,
		Bounds:              Unbounded(),
	}
}

// Validate checks the options eagerly so misconfiguration fails at
// construction rather than at the first commit.
func (o Options) Validate() error {
	if !(o.ZoomSpeed > 0) || math.IsInf(o.ZoomSpeed, 0) {
		return fmt.Errorf("zoom speed %g: %w", o.ZoomSpeed, ErrInvalidRange)
	}
	if !(o.PowerFactor > 0) || math.IsInf(o.PowerFactor, 0) {
		return fmt.Errorf("power factor %g: %w", o.PowerFactor, ErrInvalidRange)
	}
	if o.TransitionThreshold < 0 || math.IsNaN(o.TransitionThreshold) {
		return fmt.Errorf("transition threshold %g: %w", o.TransitionThreshold, ErrInvalidRange)
	}
	if err := o.Bounds.Validate(); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}
	return nil
}

// Option configures a Controller during creation.
//
// Example:
//
//	c, err := engine.NewController(
//	    engine.WithStretch(engine.StretchUniform),
//	    engine.WithLogger(slog.Default()),
//	)
type Option func(*controllerOptions)

type controllerOptions struct {
	Options
	logger *slog.Logger
}

// WithOptions replaces the whole option set.
func WithOptions(o Options) Option {
	return func(co *controllerOptions) {
		co.Options = o
	}
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(co *controllerOptions) {
		co.logger = l
	}
}

// WithStretch sets the AutoFit policy.
func WithStretch(mode StretchMode) Option {
	return func(co *controllerOptions) {
		co.Stretch = mode
	}
}

// WithZoomSpeed sets the discrete zoom step.
func WithZoomSpeed(speed float64) Option {
	return func(co *controllerOptions) {
		co.ZoomSpeed = speed
	}
}

// WithConstraints enables clamping into b on every commit.
func WithConstraints(b Bounds) Option {
	return func(co *controllerOptions) {
		co.EnableConstraints = true
		co.Bounds = b
	}
}
