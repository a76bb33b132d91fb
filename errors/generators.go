package errors

// NewNotFoundError returns a new ErrNotFound error with the given message.
func NewNotFoundError(message string, kind Kind, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError returns a new ErrBadRequest error with the given message.
func NewBadRequestError(message string, kind Kind, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewInternalError returns a new ErrInternal error with the given message.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr returns a new ErrInternal error with the given
// message and original error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewCommunicationError returns a new ErrCommunication error for failed calls
// to external services.
func NewCommunicationError(err error, message string, details Details) error {
	return Error{
		Code:    ErrCommunication,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewFatalErrorFromErr returns a new ErrFatal error with the given message and
// original error.
func NewFatalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrFatal,
		Err:     err,
		Message: message,
		Details: details,
	}
}
