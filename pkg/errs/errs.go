// Package errs holds the error values shared by the engine packages.
package errs

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter marks malformed numeric input. It is a
	// programming or configuration error, never a trading outcome.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidTransition marks a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Invalid wraps ErrInvalidParameter with the offending name and value.
func Invalid(name string, v any, why string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidParameter, name, v, why)
}

// Finite fails when v is NaN or ±Inf.
func Finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid(name, v, "must be finite")
	}
	return nil
}

// Positive fails when v is not a finite number greater than zero.
func Positive(name string, v float64) error {
	if err := Finite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return Invalid(name, v, "must be > 0")
	}
	return nil
}

// NonNegative fails when v is not a finite number >= 0.
func NonNegative(name string, v float64) error {
	if err := Finite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return Invalid(name, v, "must be >= 0")
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
