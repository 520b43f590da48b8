package docdisk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// SessionStore owns the bearer credential and the identity validated for it.
// The identity is present only while a credential is held and the backend
// has confirmed it through /me.
type SessionStore struct {
	backend   Backend
	storage   LocalStorage
	encryptor Encryptor
	clock     Clock
	logger    Logger

	mu       sync.Mutex // protects the fields below
	cred     *Credential
	identity *Identity
	api      DocumentAPI
	gen      uint64 // bumped on every bind and logout
}

// NewSessionStore creates a SessionStore. The encryptor may be nil, in which
// case the credential is stored as plain JSON.
func NewSessionStore(backend Backend, storage LocalStorage, encryptor Encryptor, clock Clock, logger Logger) *SessionStore {
	return &SessionStore{
		backend:   backend,
		storage:   storage,
		encryptor: encryptor,
		clock:     clock,
		logger:    logger,
	}
}

// Restore picks up a credential persisted by an earlier run and validates it
// with the backend. An unreadable, expired or rejected credential is cleared,
// never retried. It returns true if the session is authenticated afterwards.
func (s *SessionStore) Restore(ctx context.Context) bool {
	cred, err := s.load()
	if err != nil {
		s.logger.Warn("discarding unreadable credential", "error", err)
		s.Logout()
		return false
	}
	if cred == nil {
		return false
	}
	if cred.Expired(s.clock.Now()) {
		s.logger.Info("persisted credential expired", "expires_at", cred.ExpiresAt)
		s.Logout()
		return false
	}

	gen, api := s.bind(*cred)
	identity, err := api.Me(ctx)
	if err != nil {
		s.logger.Warn("persisted credential rejected", "error", err)
		s.Logout()
		return false
	}
	if !s.setIdentity(gen, identity) {
		return false
	}

	s.logger.Info("session restored", "username", identity.Username)
	return true
}

// Login runs the auth flow: optional registration, login, persistence of the
// credential and the identity fetch. Registration failure returns before any
// login attempt. If the identity fetch fails the session is logged out.
func (s *SessionStore) Login(ctx context.Context, form LoginForm) (*Identity, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	creds := form.credentials()

	if form.Register {
		if err := s.backend.Register(ctx, creds); err != nil {
			s.logger.Info("registration rejected", "username", creds.Username, "error", err)
			return nil, registerError(err)
		}
		s.logger.Info("account registered", "username", creds.Username)
	}

	cred, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Info("login rejected", "username", creds.Username, "error", err)
		return nil, loginError(err, form.Register)
	}

	if err := s.persist(*cred); err != nil {
		// The session still works for this run.
		s.logger.Warn("persisting credential", "error", err)
	}

	gen, api := s.bind(*cred)
	identity, err := api.Me(ctx)
	if err != nil {
		s.logger.Warn("identity fetch failed after login", "error", err)
		s.Logout()
		return nil, newError(KindTransient, MsgLoginFailed, err)
	}
	if !s.setIdentity(gen, identity) {
		return nil, ErrSessionEnded
	}

	s.logger.Info("logged in", "username", identity.Username)
	return identity, nil
}

// Logout forgets the credential and identity and removes the persisted
// credential. It is client-side only.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	s.cred = nil
	s.identity = nil
	s.api = nil
	s.gen++
	s.mu.Unlock()

	if err := s.storage.Remove(CredentialKey); err != nil {
		s.logger.Warn("removing persisted credential", "error", err)
	}
}

// Identity returns the validated identity, or nil when unauthenticated.
func (s *SessionStore) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Credential returns the held credential, or nil.
func (s *SessionStore) Credential() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}

// Authenticated reports whether an identity has been validated.
func (s *SessionStore) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// API returns the authorized handle of the current session together with
// its generation. It returns nil when unauthenticated.
func (s *SessionStore) API() (DocumentAPI, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, s.gen
	}
	return s.api, s.gen
}

// Current reports whether gen is still the live, authenticated session.
func (s *SessionStore) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.identity != nil
}

func (s *SessionStore) bind(cred Credential) (uint64, DocumentAPI) {
	api := s.backend.Authorize(cred)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	s.identity = nil
	s.api = api
	s.gen++
	return s.gen, api
}

// setIdentity applies identity unless the session moved on in the meantime.
func (s *SessionStore) setIdentity(gen uint64, identity *Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.cred == nil {
		return false
	}
	s.identity = identity
	return true
}

func (s *SessionStore) persist(cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return fmt.Errorf("encrypting credential: %w", err)
		}
		data = buf.Bytes()
	}

	if err := s.storage.Set(CredentialKey, data); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

func (s *SessionStore) load() (*Credential, error) {
	data, err := s.storage.Get(CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Decrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, fmt.Errorf("decrypting credential: %w", err)
		}
		data = buf.Bytes()
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	if cred.Token == "" {
		return nil, fmt.Errorf("credential has no token")
	}
	return &cred, nil
}
