package result

// StatusUnset is reported before the first fetch.
const StatusUnset = "unset"

// View is the JSON shape of a State as served to clients.
type View[T any] struct {
	Status  string `json:"status"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ViewOf renders s for transport. ok=false means nothing has been published yet.
func ViewOf[T any](s State[T], ok bool) View[T] {
	if !ok || s == nil {
		return View[T]{Status: StatusUnset}
	}
	return Match[T, View[T]](s,
		func() View[T] {
			return View[T]{Status: KindLoading.String()}
		},
		func(payload T) View[T] {
			return View[T]{Status: KindSuccess.String(), Data: &payload}
		},
		func(message string) View[T] {
			return View[T]{Status: KindError.String(), Message: message}
		},
	)
}
