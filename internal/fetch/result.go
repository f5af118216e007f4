package fetch

// Result is the tagged outcome of a fetch: exactly one of Value or Err is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Fail wraps an error. A nil err produces a failed result of kind network.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = &Error{Kind: KindNetwork, Message: "unknown failure"}
	}
	return Result[T]{Err: err}
}

// From builds a Result from a conventional (value, error) pair.
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(value)
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// Unwrap returns the conventional (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// Kind returns the error kind, or "" for a successful result.
func (r Result[T]) Kind() ErrorKind {
	return KindOf(r.Err)
}
