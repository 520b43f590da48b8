package docdisk

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// LoginForm is a login or registration attempt.
type LoginForm struct {
	Username string
	Password string
	PIN      string

	// Register creates the account before logging in.
	Register bool
}

// Validate rejects incomplete forms before any network call.
func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" || f.Password == "" {
		return newError(KindValidation, MsgCredentialsRequired, nil)
	}
	if !pinPattern.MatchString(f.PIN) {
		return newError(KindValidation, MsgPINInvalid, nil)
	}
	return nil
}

func (f LoginForm) credentials() Credentials {
	return Credentials{Username: f.Username, Password: f.Password, PIN: f.PIN}
}

// registerError maps a failed registration to a user-facing error.
// A 400 is a username collision; any other detail from the backend is
// passed through, preferring the first validation message.
func registerError(err error) *Error {
	var re *ResponseError
	if !errors.As(err, &re) {
		return newError(KindTransient, MsgRegisterFailed, err)
	}

	kind := KindTransient
	if re.StatusCode >= 400 && re.StatusCode < 500 {
		kind = KindValidation
	}

	switch {
	case re.StatusCode == http.StatusBadRequest:
		return newError(KindConflict, MsgUsernameTaken, err)
	case re.Detail != "":
		return newError(kind, re.Detail, err)
	case len(re.Messages) > 0:
		msg := re.Messages[0]
		if msg == "" {
			msg = MsgRegisterInvalid
		}
		return newError(kind, msg, err)
	case re.MalformedDetail:
		return newError(kind, MsgRegisterCheck, err)
	default:
		return newError(KindTransient, MsgRegisterFailed, err)
	}
}

// loginError maps a failed login. When the account was created a moment
// earlier the failure gets its own message so the user knows the account exists.
func loginError(err error, registered bool) *Error {
	unauthorized := statusOf(err) == http.StatusUnauthorized

	switch {
	case registered && unauthorized:
		return newError(KindAuth, MsgLoginAfterRegister, err)
	case registered:
		return newError(KindTransient, MsgLoginAfterRegister, err)
	case unauthorized:
		return newError(KindAuth, MsgInvalidCredentials, err)
	default:
		return newError(KindTransient, MsgLoginFailed, err)
	}
}
