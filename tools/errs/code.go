package errs

// Wire error codes. 1xxx rejects bad client input, 2xxx reports a backend
// that could not serve the call, 5xx is unexpected server failure.
const (
	ServerInternalError = 500

	ArgsError         = 1001
	EmptyContentError = 1002
	NotJoinedError    = 1003

	BackendError       = 2001
	PublishError       = 2002
	RecordCorruptError = 2101
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrEmptyContent   = NewCodeError(EmptyContentError, "EmptyContentError")
	ErrNotJoined      = NewCodeError(NotJoinedError, "NotJoinedError")
	ErrBackend        = NewCodeError(BackendError, "BackendError")
	ErrPublish        = NewCodeError(PublishError, "PublishError")
	ErrRecordCorrupt  = NewCodeError(RecordCorruptError, "RecordCorruptError")
)
