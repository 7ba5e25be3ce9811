package errors

import (
	"errors"
	"sync"
)

// ErrorCollector gathers per-item errors produced by concurrent workers
// within a single stage.
type ErrorCollector struct {
	errors []error
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// AddError adds an error to the collector. Nil errors are ignored.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// Errors returns a copy of all collected errors.
func (ec *ErrorCollector) Errors() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]error, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// HasErrors returns true if there are any errors.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Join returns all collected errors as one, or nil.
func (ec *ErrorCollector) Join() error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return errors.Join(ec.errors...)
}
