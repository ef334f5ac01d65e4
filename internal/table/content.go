package table

import "errors"

// ContentState is what the body of a table currently shows.
type ContentState int

const (
	ContentReady ContentState = iota
	ContentLoading
	ContentError
	ContentEmpty
)

const (
	LoadingMessage = "Loading..."
	EmptyMessage   = "No data available"
)

// StateOf picks the content state. Loading wins over error, error over empty.
func StateOf(loading bool, err error, rows int) ContentState {
	switch {
	case loading:
		return ContentLoading
	case err != nil:
		return ContentError
	case rows == 0:
		return ContentEmpty
	default:
		return ContentReady
	}
}

// Message returns the inline text for a non-ready state.
func Message(state ContentState, err error) string {
	switch state {
	case ContentLoading:
		return LoadingMessage
	case ContentError:
		return ErrorMessage(err)
	case ContentEmpty:
		return EmptyMessage
	default:
		return ""
	}
}

type reasoner interface {
	Reason() string
}

// ErrorMessage prefers the backend's reason over the error text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var r reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		return r.Reason()
	}
	return err.Error()
}
