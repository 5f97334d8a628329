package models

// Result is the outcome of a service operation: either a value or a
// classified failure, never both.
type Result[T any] struct {
	value T
	err   *AppError
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure. Unclassified errors become OPERATION_FAILED.
func Fail[T any](err error) Result[T] {
	appErr := AsAppError(err)
	if appErr == nil {
		appErr = NewOperationFailedError("", nil)
	}
	return Result[T]{err: appErr}
}

// From builds a Result from a conventional (value, error) pair.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// Value returns the payload and the failure, if any.
func (r Result[T]) Value() (T, *AppError) { return r.value, r.err }

// Match calls exactly one of onOk or onFail.
func (r Result[T]) Match(onOk func(T) error, onFail func(*AppError) error) error {
	if r.err != nil {
		return onFail(r.err)
	}
	return onOk(r.value)
}
