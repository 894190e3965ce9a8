package assert

import (
	"errors"
	"fmt"
	"log"
	"reflect"
)

// Runtime toggles for assertion behavior.
// StrictMode panics on failed checks instead of returning errors (development only).
// SuppressLogs silences assertion failure logging (useful in tests).
var (
	StrictMode   = false
	SuppressLogs = false
)

// Check validates a precondition and returns an error describing the violation.
// Callers are expected to handle the error and degrade gracefully rather than crash.
func Check(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	fail(msg)
	return errors.New(msg)
}

// NotNil validates that v is a usable non-nil value, including typed nils
// hiding behind interfaces.
func NotNil(v interface{}, name string) error {
	if v == nil {
		return nilFailure(name)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if rv.IsNil() {
			return nilFailure(name)
		}
	}
	return nil
}

// InRange validates that v lies within [lo, hi] inclusive.
func InRange(v, lo, hi int, name string) error {
	if v >= lo && v <= hi {
		return nil
	}
	msg := fmt.Sprintf("%s out of range: %d not in [%d, %d]", name, v, lo, hi)
	fail(msg)
	return errors.New(msg)
}

func nilFailure(name string) error {
	msg := name + " must not be nil"
	fail(msg)
	return errors.New(msg)
}

func fail(msg string) {
	if !SuppressLogs {
		log.Printf("assertion failed: %s", msg)
	}
	if StrictMode {
		panic("assertion failed: " + msg)
	}
}
