package nrf24

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidValue is matched by every [ValidationError].
	ErrInvalidValue = errors.New("nrf24: value out of range")
	// ErrBus is matched by every [TransportError].
	ErrBus = errors.New("nrf24: bus transaction failed")
)

// ValidationError is returned when a caller supplied value is outside the
// accepted range of a setting. No bus transaction is issued when it is returned.
type ValidationError struct {
	Setting string
	Value   int
	// Min and Max bound the accepted values, inclusive.
	Min, Max int
}

func (e *ValidationError) Error() string {
	return "nrf24: invalid " + e.Setting + " " + strconv.Itoa(e.Value) +
		" (valid " + strconv.Itoa(e.Min) + ".." + strconv.Itoa(e.Max) + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidValue }

func invalid(setting string, v, min, max int) error {
	return &ValidationError{Setting: setting, Value: v, Min: min, Max: max}
}

// TransportError is returned when the underlying bus reports a failure.
type TransportError struct {
	// Op is "write" or "read".
	Op     string
	Opcode Opcode
	Err    error
}

func (e *TransportError) Error() string {
	return "nrf24: " + e.Op + " opcode 0x" + strconv.FormatUint(uint64(e.Opcode), 16) + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrBus }
