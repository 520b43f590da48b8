package testutil

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"docdisk/internal/docdisk"
)

// FakeBackend is an in-memory docdisk.Backend. It mirrors the service's
// status codes and records every call so tests can assert on them.
//
// Set one of the *Err fields to make every call of that kind fail with it.
type FakeBackend struct {
	Clock docdisk.Clock
	IDs   docdisk.IDGenerator

	mu        sync.Mutex
	users     map[string]*fakeUser // username -> user
	tokens    map[string]string    // token -> user id
	documents []docdisk.Document
	calls     map[string]int

	RegisterErr error
	LoginErr    error
	MeErr       error
	ListErr     error
	CreateErr   error
	UpdateErr   error
	DeleteErr   error

	// BeforeList runs at the start of every ListDocuments call, outside
	// the backend's lock.
	BeforeList func()
}

type fakeUser struct {
	identity docdisk.Identity
	password string
	pin      string
}

var _ docdisk.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates an empty backend.
func NewFakeBackend(clock docdisk.Clock) *FakeBackend {
	return &FakeBackend{
		Clock:  clock,
		IDs:    NewStubIDGenerator(),
		users:  make(map[string]*fakeUser),
		tokens: make(map[string]string),
		calls:  make(map[string]int),
	}
}

// AddUser registers a user directly, bypassing the Register call counter.
func (b *FakeBackend) AddUser(username, password, pin string) docdisk.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, password, pin)
}

func (b *FakeBackend) addUserLocked(username, password, pin string) docdisk.Identity {
	u := &fakeUser{
		identity: docdisk.Identity{
			ID:        b.IDs.New(),
			Username:  username,
			CreatedAt: b.Clock.Now(),
		},
		password: password,
		pin:      pin,
	}
	b.users[username] = u
	return u.identity
}

// IssueToken returns a valid token for an existing user.
func (b *FakeBackend) IssueToken(username string) docdisk.Credential {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		panic(fmt.Sprintf("unknown user %q", username))
	}
	token := "token-" + b.IDs.New()
	b.tokens[token] = u.identity.ID
	return docdisk.Credential{Token: token, TokenType: "bearer"}
}

// RevokeTokens invalidates every issued token.
func (b *FakeBackend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

// AddDocument stores a document for username directly.
func (b *FakeBackend) AddDocument(username, title, content string) docdisk.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[username]
	now := b.Clock.Now()
	doc := docdisk.Document{
		ID:        b.IDs.New(),
		Title:     title,
		Content:   content,
		UserID:    u.identity.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.documents = append(b.documents, doc)
	return doc
}

// Calls returns how often the named call was made, e.g. "login" or "list".
func (b *FakeBackend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

// TotalCalls returns the number of calls of any kind.
func (b *FakeBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *FakeBackend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
}

func (b *FakeBackend) Register(ctx context.Context, creds docdisk.Credentials) error {
	b.record("register")
	if b.RegisterErr != nil {
		return b.RegisterErr
	}

	username := strings.ToLower(strings.TrimSpace(creds.Username))
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[username]; ok {
		return &docdisk.ResponseError{StatusCode: http.StatusBadRequest, Detail: "Username already registered"}
	}
	b.addUserLocked(username, creds.Password, creds.PIN)
	return nil
}

func (b *FakeBackend) Login(ctx context.Context, creds docdisk.Credentials) (*docdisk.Credential, error) {
	b.record("login")
	if b.LoginErr != nil {
		return nil, b.LoginErr
	}

	username := strings.ToLower(strings.TrimSpace(creds.Username))
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok || u.password != creds.Password || u.pin != creds.PIN {
		return nil, &docdisk.ResponseError{StatusCode: http.StatusUnauthorized, Detail: "Invalid credentials"}
	}
	token := "token-" + b.IDs.New()
	b.tokens[token] = u.identity.ID
	return &docdisk.Credential{Token: token, TokenType: "bearer"}, nil
}

func (b *FakeBackend) Authorize(cred docdisk.Credential) docdisk.DocumentAPI {
	return &fakeDocumentAPI{backend: b, token: cred.Token}
}

type fakeDocumentAPI struct {
	backend *FakeBackend
	token   string
}

func (a *fakeDocumentAPI) user() (*fakeUser, error) {
	b := a.backend
	id, ok := b.tokens[a.token]
	if !ok {
		return nil, &docdisk.ResponseError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	for _, u := range b.users {
		if u.identity.ID == id {
			return u, nil
		}
	}
	return nil, &docdisk.ResponseError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
}

func (a *fakeDocumentAPI) Me(ctx context.Context) (*docdisk.Identity, error) {
	b := a.backend
	b.record("me")
	if b.MeErr != nil {
		return nil, b.MeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := a.user()
	if err != nil {
		return nil, err
	}
	id := u.identity
	return &id, nil
}

func (a *fakeDocumentAPI) ListDocuments(ctx context.Context) ([]docdisk.Document, error) {
	b := a.backend
	b.record("list")
	if b.BeforeList != nil {
		b.BeforeList()
	}
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := a.user()
	if err != nil {
		return nil, err
	}
	var out []docdisk.Document
	for _, d := range b.documents {
		if d.UserID == u.identity.ID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (a *fakeDocumentAPI) CreateDocument(ctx context.Context, in docdisk.DocumentInput) (*docdisk.Document, error) {
	b := a.backend
	b.record("create")
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := a.user()
	if err != nil {
		return nil, err
	}
	now := b.Clock.Now()
	doc := docdisk.Document{
		ID:        b.IDs.New(),
		Title:     in.Title,
		Content:   in.Content,
		UserID:    u.identity.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.documents = append(b.documents, doc)
	return &doc, nil
}

func (a *fakeDocumentAPI) UpdateDocument(ctx context.Context, id string, in docdisk.DocumentInput) (*docdisk.Document, error) {
	b := a.backend
	b.record("update")
	if b.UpdateErr != nil {
		return nil, b.UpdateErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := a.user()
	if err != nil {
		return nil, err
	}
	for i, d := range b.documents {
		if d.ID == id && d.UserID == u.identity.ID {
			d.Title = in.Title
			d.Content = in.Content
			d.UpdatedAt = b.Clock.Now()
			b.documents[i] = d
			return &d, nil
		}
	}
	return nil, &docdisk.ResponseError{StatusCode: http.StatusNotFound, Detail: "Document not found"}
}

func (a *fakeDocumentAPI) DeleteDocument(ctx context.Context, id string) error {
	b := a.backend
	b.record("delete")
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := a.user()
	if err != nil {
		return err
	}
	for i, d := range b.documents {
		if d.ID == id && d.UserID == u.identity.ID {
			b.documents = append(b.documents[:i], b.documents[i+1:]...)
			return nil
		}
	}
	return &docdisk.ResponseError{StatusCode: http.StatusNotFound, Detail: "Document not found"}
}
