package docdisk

import (
	"context"
	"fmt"
)

// Credentials are the values a user types into the login form.
type Credentials struct {
	Username string
	Password string
	PIN      string
}

// DocumentInput is the body of a create or update call.
type DocumentInput struct {
	Title   string
	Content string
}

// Backend is the unauthenticated surface of the document service.
// Authorize binds a credential to a DocumentAPI; there is no shared
// default header, so every session carries its own handle.
type Backend interface {
	// Register creates a new account. It does not log in.
	Register(ctx context.Context, creds Credentials) error

	// Login exchanges credentials for a bearer credential.
	Login(ctx context.Context, creds Credentials) (*Credential, error)

	// Authorize returns a DocumentAPI that sends cred on every call.
	Authorize(cred Credential) DocumentAPI
}

// DocumentAPI is the authenticated surface of the document service.
type DocumentAPI interface {
	// Me returns the identity the credential belongs to.
	Me(ctx context.Context) (*Identity, error)

	// ListDocuments returns all documents of the user, in backend order.
	ListDocuments(ctx context.Context) ([]Document, error)

	CreateDocument(ctx context.Context, in DocumentInput) (*Document, error)
	UpdateDocument(ctx context.Context, id string, in DocumentInput) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ResponseError is returned by Backend implementations when the service
// answered with a non-2xx status. Transport failures are returned as-is.
type ResponseError struct {
	StatusCode int

	// Detail is the backend's detail message when it was a plain string.
	Detail string

	// Messages holds the per-field validation messages when the detail
	// was a list, in backend order.
	Messages []string

	// MalformedDetail is set when a detail was present but was neither
	// a string nor a list of validation entries.
	MalformedDetail bool
}

func (e *ResponseError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
	case len(e.Messages) > 0:
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Messages[0])
	default:
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
}
