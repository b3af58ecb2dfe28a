package playlistsync

// failure carries the detail text of a failed collaborator call.
type failure struct {
	op     string
	Detail string
	Err    error
}

func newFailure(op string, err error) failure {
	return failure{op: op, Detail: err.Error(), Err: err}
}

func (f *failure) Error() string {
	return f.op + ": " + f.Detail
}

func (f *failure) Unwrap() error {
	return f.Err
}

// LoadError reports a failed playlist fetch.
type LoadError struct{ failure }

// CreateError reports a failed playlist creation.
type CreateError struct{ failure }

// UpdateError reports a failed rename or membership toggle.
type UpdateError struct{ failure }

// DeleteError reports a failed playlist removal.
type DeleteError struct{ failure }
