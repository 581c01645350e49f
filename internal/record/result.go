package record

import "fmt"

// RecordError is a per-record failure: the record is skipped and reported,
// the source continues.
type RecordError struct {
	SourceID string
	Path     string
	Message  string
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.SourceID, e.Path, e.Message)
}

// Line renders the error in the "path|message" form used by error files.
func (e RecordError) Line() string {
	return e.Path + "|" + e.Message
}

// Result carries either a value or a per-record error.
type Result[T any] struct {
	Value T
	Err   *RecordError
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps a record error.
func Fail[T any](err RecordError) Result[T] {
	return Result[T]{Err: &err}
}

// Partition splits results into successful values and errors, keeping order.
func Partition[T any](results []Result[T]) ([]T, []RecordError) {
	values := make([]T, 0, len(results))
	var errs []RecordError
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, *r.Err)
			continue
		}
		values = append(values, r.Value)
	}
	return values, errs
}
