package errors

type Code string

const (
	ErrBadRequest    Code = "bad-request"
	ErrCommunication Code = "communication"
	ErrFatal         Code = "fatal"
	ErrNotFound      Code = "not-found"
	ErrInternal      Code = "internal"
	ErrUnexpected    Code = "unexpected"
)

type Kind string

const (
	// KindDeviceNotFound is used when an event or command references a device key
	// that is not part of the configured registry.
	KindDeviceNotFound Kind = "device-not-found"
	// KindInvalidEvent is used when an ingested event misses required fields such
	// as its timestamp or carries an unknown kind.
	KindInvalidEvent Kind = "invalid-event"
	// KindDecodeJSON is used when a request body could not be parsed as JSON.
	KindDecodeJSON Kind = "parse-request-body-as-json"
	// KindEncodeJSON is used when a response could not be encoded as JSON.
	KindEncodeJSON Kind = "encode-json"
	// KindUnauthorized is used when a webhook secret does not match.
	KindUnauthorized Kind = "unauthorized"
	// KindShouldNotHappen is used for invariant violations that indicate a
	// programming error.
	KindShouldNotHappen Kind = "should-not-happen"
)
