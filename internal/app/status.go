package app

import (
	"context"
	"time"

	"docdisk/internal/docdisk"
	"docdisk/internal/encryption"
)

// Status summarizes the local setup and the server's reachability.
type Status struct {
	ServerURL     string
	ServerMessage string
	ServerErr     error

	StorageType string
	StorageErr  error

	EncryptionType string
	Recipient      string

	// CredentialSavedAt is zero when no credential is stored or the storage
	// backend does not track write times.
	CredentialSavedAt time.Time
}

type setupValidator interface {
	ValidateSetup() error
}

type timestampedStorage interface {
	UpdatedAt(key string) (time.Time, error)
}

// Status checks storage, encryption and the server without touching the
// session.
func (a *App) Status(ctx context.Context) Status {
	st := Status{
		ServerURL:      a.backend.BaseURL(),
		StorageType:    a.cfg.Storage.Type,
		EncryptionType: a.cfg.Encryption.Type,
	}

	st.ServerMessage, st.ServerErr = a.backend.Health(ctx)
	if st.ServerErr != nil {
		a.logger.Warn("server unreachable", "server", st.ServerURL, "error", st.ServerErr)
	}

	if v, ok := a.storage.(setupValidator); ok {
		st.StorageErr = v.ValidateSetup()
	}
	if ts, ok := a.storage.(timestampedStorage); ok && st.StorageErr == nil {
		if at, err := ts.UpdatedAt(docdisk.CredentialKey); err == nil {
			st.CredentialSavedAt = at
		}
	}

	if a.cfg.Encryption.Type == "age" || a.cfg.Encryption.Type == "" {
		recipient, err := encryption.NewAgeEncryptor(a.cfg.Encryption).Recipient()
		if err == nil {
			st.Recipient = recipient
		}
	}
	return st
}
