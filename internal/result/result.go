package result

import "fmt"

// Kind identifies which variant a State holds.
type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
)

var kindName = map[Kind]string{
	KindLoading: "loading",
	KindSuccess: "success",
	KindError:   "error",
}

func (k Kind) String() string {
	if name, ok := kindName[k]; ok {
		return name
	}
	return "unknown"
}

// State is the outcome of one asynchronous fetch: exactly one of
// LoadingState, SuccessState or ErrorState. The set is closed; no type
// outside this package can satisfy it.
type State[T any] interface {
	Kind() Kind
	state()
}

// LoadingState marks a request that is in flight.
type LoadingState[T any] struct{}

// SuccessState holds the payload of a completed request.
type SuccessState[T any] struct {
	Payload T
}

// ErrorState holds a user-facing failure message.
type ErrorState[T any] struct {
	Message string
}

func (LoadingState[T]) Kind() Kind { return KindLoading }
func (SuccessState[T]) Kind() Kind { return KindSuccess }
func (ErrorState[T]) Kind() Kind   { return KindError }

func (LoadingState[T]) state() {}
func (SuccessState[T]) state() {}
func (ErrorState[T]) state()   {}

// Loading returns the in-flight variant.
func Loading[T any]() State[T] {
	return LoadingState[T]{}
}

// Succeeded returns the success variant carrying payload.
func Succeeded[T any](payload T) State[T] {
	return SuccessState[T]{Payload: payload}
}

// Failed returns the error variant carrying message.
func Failed[T any](message string) State[T] {
	return ErrorState[T]{Message: message}
}

// Match dispatches s to the handler for its variant. Every variant needs a
// handler, so callers cannot silently skip one.
func Match[T, R any](
	s State[T],
	onLoading func() R,
	onSuccess func(payload T) R,
	onError func(message string) R,
) R {
	switch v := s.(type) {
	case LoadingState[T]:
		return onLoading()
	case SuccessState[T]:
		return onSuccess(v.Payload)
	case ErrorState[T]:
		return onError(v.Message)
	default:
		panic(fmt.Sprintf("result: unexpected state %T", s))
	}
}
