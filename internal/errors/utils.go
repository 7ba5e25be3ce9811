package errors

import "errors"

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New is errors.New.
func New(text string) error {
	return errors.New(text)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// WrapStage attaches stage to err. A pipeline *Error keeps its type and code
// and gains the stage if it has none; any other error is wrapped as an
// internal error.
func WrapStage(err error, stage string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Stage == "" {
			e.Stage = stage
		}
		return err
	}

	return NewInternalError(ErrCodeInternalError, "stage failed", err).WithStage(stage)
}
