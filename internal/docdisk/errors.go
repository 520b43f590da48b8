package docdisk

import "errors"

// ErrorKind classifies a user-facing failure.
type ErrorKind int

const (
	// KindValidation failures are caught locally and never reach the backend.
	KindValidation ErrorKind = iota + 1
	// KindAuth failures are rejected credentials.
	KindAuth
	// KindConflict failures are username collisions on registration.
	KindConflict
	// KindTransient covers network errors and every other backend failure.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgCredentialsRequired = "Username and password are required."
	MsgPINInvalid          = "PIN must be exactly 4 digits."
	MsgInvalidCredentials  = "Invalid credentials. Please check your username, password, and PIN."
	MsgLoginFailed         = "Login failed. Please try again."
	MsgLoginAfterRegister  = "Account created, but signing in failed. Please sign in."
	MsgUsernameTaken       = "Username is already taken. Please choose a different username."
	MsgRegisterInvalid     = "Invalid input. Please check your details."
	MsgRegisterCheck       = "Registration failed. Please check your details."
	MsgRegisterFailed      = "Registration failed. Please try again."
	MsgTitleRequired       = "Document title is required."
	MsgNoOpenDocument      = "No document is open."
	MsgNotInList           = "Return to the document list first."
	MsgNotSignedIn         = "Please sign in first."
	MsgDocumentNotFound    = "Document not found."
	MsgLoadFailed          = "Failed to load documents"
	MsgSaveFailed          = "Failed to save document"
	MsgDeleteFailed        = "Failed to delete document"
	MsgSaved               = "Document saved successfully!"
	MsgDeleted             = "Document deleted successfully!"
	MsgWelcome             = "Welcome back, %s!"
)

// ErrSessionEnded is returned when an in-flight result arrives after the
// session it belonged to was logged out. The result is discarded.
var ErrSessionEnded = errors.New("session ended")

// ErrRefreshFailed wraps a refresh failure that followed a successful
// mutation: the mutation itself went through.
var ErrRefreshFailed = errors.New("refresh after mutation failed")

// Error is a failure converted at the action boundary. Message is safe
// to show to the user and never contains backend internals.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func statusOf(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
