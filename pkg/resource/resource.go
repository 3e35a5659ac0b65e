// Package resource provides the envelope every outbound event is wrapped in.
//
// A Resource is a tagged union with three variants:
//   - Loading carries a human-readable progress message
//   - Success carries the produced value
//   - Error carries a human-readable failure message
//
// Consumers switch on Kind and read either Message or Data.
package resource

import "fmt"

// Kind identifies the Resource variant
type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
)

// String returns the variant name
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resource wraps a value of type T with progress semantics.
// Message is set for Loading and Error, Data only for Success.
type Resource[T any] struct {
	Kind    Kind
	Message string
	Data    T
}

// Loading creates a progress event
func Loading[T any](message string) Resource[T] {
	return Resource[T]{Kind: KindLoading, Message: message}
}

// Success creates an event carrying data
func Success[T any](data T) Resource[T] {
	return Resource[T]{Kind: KindSuccess, Data: data}
}

// Error creates a failure event
func Error[T any](message string) Resource[T] {
	return Resource[T]{Kind: KindError, Message: message}
}

func (r Resource[T]) IsLoading() bool { return r.Kind == KindLoading }
func (r Resource[T]) IsSuccess() bool { return r.Kind == KindSuccess }
func (r Resource[T]) IsError() bool   { return r.Kind == KindError }

// String renders the resource for logs
func (r Resource[T]) String() string {
	if r.Kind == KindSuccess {
		return fmt.Sprintf("success(%v)", r.Data)
	}
	return fmt.Sprintf("%s(%q)", r.Kind, r.Message)
}
